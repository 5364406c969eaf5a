// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package wsframe

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel protocol errors, mirroring smux's package-level Err* sentinels
// (ErrInvalidProtocol, ErrWouldBlock, ...) so callers can compare with
// errors.Is instead of string-matching.
var (
	ErrUnmaskedFrame = errors.New("wsframe: server received an unmasked frame")
	ErrMaskedFrame   = errors.New("wsframe: client received a masked frame")
	ErrOverflow      = errors.New("wsframe: payload length exceeds max_size")
)

// InvalidOpcodeError reports a reserved/unknown 4-bit opcode.
type InvalidOpcodeError struct{ Raw byte }

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("wsframe: invalid opcode %#x", e.Raw)
}

// InvalidLengthError reports a control frame (Ping/Pong) whose payload
// exceeds the 125-byte limit RFC 6455 places on control frames.
type InvalidLengthError struct{ N uint64 }

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("wsframe: invalid control frame length %d", e.N)
}
