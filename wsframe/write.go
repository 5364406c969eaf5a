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
	"encoding/binary"
	"math/rand"
	"slices"
)

// WriteMessage appends one RFC 6455 frame (header, optional mask key, and
// payload) to *dst. The header length field is encoded in 1, 3, or 9 bytes
// depending on the payload size. If mask is true, a random mask key is
// generated, written little-endian after the header, and applied in place
// over the appended payload region.
//
// Capacity for the largest header (14 bytes) plus the payload is reserved
// up front, so the appends below never reallocate mid-write.
func WriteMessage(dst *[]byte, payload []byte, opcode Opcode, fin, mask bool) {
	payloadLen := len(payload)

	one := byte(opcode)
	if fin {
		one |= 0x80
	}

	var two byte
	if mask {
		two = 0x80
	}

	buf := slices.Grow(*dst, 14+payloadLen)
	switch {
	case payloadLen < 126:
		buf = append(buf, one, two|byte(payloadLen))
	case payloadLen <= 0xFFFF:
		buf = append(buf, one, two|126)
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(payloadLen))
		buf = append(buf, lenBuf[:]...)
	default:
		buf = append(buf, one, two|127)
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(payloadLen))
		buf = append(buf, lenBuf[:]...)
	}

	if mask {
		key := rand.Uint32()
		var keyBuf [4]byte
		binary.LittleEndian.PutUint32(keyBuf[:], key)
		buf = append(buf, keyBuf[:]...)

		pos := len(buf)
		buf = append(buf, payload...)
		applyMask(buf[pos:], key)
	} else {
		buf = append(buf, payload...)
	}

	*dst = buf
}

// WriteClose appends a Close frame. If reason is nil, an empty-payload
// Close is written. Otherwise the payload is a big-endian u16 close code
// optionally followed by the description bytes.
func WriteClose(dst *[]byte, reason *CloseReason, mask bool) {
	var payload []byte
	if reason != nil {
		payload = make([]byte, 2, 2+len(reason.Description))
		binary.BigEndian.PutUint16(payload, uint16(reason.Code))
		if reason.HasDesc {
			payload = append(payload, reason.Description...)
		}
	}
	WriteMessage(dst, payload, Close, true, mask)
}
