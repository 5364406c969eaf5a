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

// Package wsframe implements an incremental RFC 6455 WebSocket frame parser
// and serializer over a growable byte buffer. It is independent of the pool
// package but is meant to consume pool-allocated buffers (pool.Buf) for the
// payload bytes it reads and writes.
//
// The header layout and field naming follow smux/frame.go's rawHeader
// style (a fixed byte array plus accessor methods, encoding/binary for
// multi-byte fields); the parsing state machine and edge cases follow
// ntex's ws/frame.rs (see original_source/ntex/src/ws/frame.rs) byte for
// byte.
package wsframe

import "fmt"

// Opcode is the 4-bit WebSocket frame type.
type Opcode byte

// The defined RFC 6455 opcodes. Values 3-7 and 11-15 are reserved and are
// folded into Bad by classify.
const (
	Continuation Opcode = 0x0
	Text         Opcode = 0x1
	Binary       Opcode = 0x2
	Close        Opcode = 0x8
	Ping         Opcode = 0x9
	Pong         Opcode = 0xA
	Bad          Opcode = 0xFF
)

func classify(raw byte) Opcode {
	switch raw {
	case 0x0:
		return Continuation
	case 0x1:
		return Text
	case 0x2:
		return Binary
	case 0x8:
		return Close
	case 0x9:
		return Ping
	case 0xA:
		return Pong
	default:
		return Bad
	}
}

func (o Opcode) String() string {
	switch o {
	case Continuation:
		return "Continuation"
	case Text:
		return "Text"
	case Binary:
		return "Binary"
	case Close:
		return "Close"
	case Ping:
		return "Ping"
	case Pong:
		return "Pong"
	default:
		return fmt.Sprintf("Bad(%#x)", byte(o))
	}
}

// Frame is one parsed WebSocket frame: (fin, opcode, payload?). The
// protocol state machine is stateless across frames; state lives only
// mid-header during incremental parsing of a single header.
type Frame struct {
	Fin     bool
	Opcode  Opcode
	Payload []byte // nil when the frame carries no payload
}

// CloseCode is the 2-byte status code carried by a Close frame's payload.
type CloseCode uint16

// Close codes in common use; RFC 6455 §7.4.1 defines the full registry.
const (
	CloseNormal          CloseCode = 1000
	CloseGoingAway       CloseCode = 1001
	CloseProtocolError   CloseCode = 1002
	CloseUnsupportedData CloseCode = 1003
	CloseInvalidPayload  CloseCode = 1007
	ClosePolicyViolation CloseCode = 1008
	CloseMessageTooBig   CloseCode = 1009
	CloseInternalError   CloseCode = 1011
)

// CloseReason is the decoded payload of a Close frame.
type CloseReason struct {
	Code        CloseCode
	Description string // empty when absent
	HasDesc     bool
}
