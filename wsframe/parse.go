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
	"strings"
)

// Metadata is the decoded RFC 6455 frame header, prior to the payload
// bytes being available.
type Metadata struct {
	HeaderLen  int
	Fin        bool
	Opcode     Opcode
	PayloadLen uint64
	Mask       uint32
	Masked     bool
}

// ParseMetadata reads a frame header from src. It returns (meta, true, nil)
// on success, (Metadata{}, false, nil) when src does not yet hold a
// complete header ("NeedMore" — not an error), or (Metadata{}, false, err)
// on a protocol violation.
//
// Header layout (RFC 6455):
//
//	byte 0: FIN (bit 7) | rsv (3 bits, ignored) | opcode (4 bits)
//	byte 1: MASK (bit 7) | len7 (7 bits)
//	len7 == 126: next 2 bytes big-endian u16 payload length
//	len7 == 127: next 8 bytes big-endian u64 payload length
//	MASK set:    next 4 bytes mask key, kept little-endian for apply_mask
func ParseMetadata(src []byte, isServer bool, maxSize uint64) (Metadata, bool, error) {
	if len(src) < 2 {
		return Metadata{}, false, nil
	}

	first, second := src[0], src[1]
	fin := first&0x80 != 0
	masked := second&0x80 != 0

	if isServer && !masked {
		return Metadata{}, false, ErrUnmaskedFrame
	}
	if !isServer && masked {
		return Metadata{}, false, ErrMaskedFrame
	}

	opcode := classify(first & 0x0F)
	if opcode == Bad {
		return Metadata{}, false, &InvalidOpcodeError{Raw: first & 0x0F}
	}

	idx := 2
	len7 := second & 0x7F

	var length uint64
	switch {
	case len7 == 126:
		if len(src) < 4 {
			return Metadata{}, false, nil
		}
		length = uint64(binary.BigEndian.Uint16(src[2:4]))
		idx = 4
	case len7 == 127:
		if len(src) < 10 {
			return Metadata{}, false, nil
		}
		length = binary.BigEndian.Uint64(src[2:10])
		if length > maxSize {
			return Metadata{}, false, ErrOverflow
		}
		idx = 10
	default:
		length = uint64(len7)
	}

	if length > maxSize {
		return Metadata{}, false, ErrOverflow
	}

	var maskKey uint32
	if masked {
		if len(src) < idx+4 {
			return Metadata{}, false, nil
		}
		maskKey = binary.LittleEndian.Uint32(src[idx : idx+4])
		idx += 4
	}

	return Metadata{
		HeaderLen:  idx,
		Fin:        fin,
		Opcode:     opcode,
		PayloadLen: length,
		Mask:       maskKey,
		Masked:     masked,
	}, true, nil
}

// Parse reads one frame from *src. It returns (nil, nil) when src does not
// yet hold a complete frame ("NeedMore"), (frame, nil) on success, or
// (nil, err) on a protocol violation. On success, the consumed bytes
// (header, and normally the payload) are removed from *src by reslicing —
// zero-copy, matching smux's split-off-by-reslice style rather than a
// copying read.
func Parse(src *[]byte, isServer bool, maxSize uint64) (*Frame, error) {
	buf := *src

	meta, ok, err := ParseMetadata(buf, isServer, maxSize)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if uint64(len(buf)) < uint64(meta.HeaderLen)+meta.PayloadLen {
		return nil, nil
	}

	// consume the header.
	buf = buf[meta.HeaderLen:]

	if meta.PayloadLen == 0 {
		*src = buf
		return &Frame{Fin: meta.Fin, Opcode: meta.Opcode, Payload: nil}, nil
	}

	if (meta.Opcode == Ping || meta.Opcode == Pong) && meta.PayloadLen > 125 {
		*src = buf
		return nil, &InvalidLengthError{N: meta.PayloadLen}
	}

	if meta.Opcode == Close && meta.PayloadLen > 125 {
		// Faithful quirk (see spec §9 / DESIGN.md): morph to a clean
		// close but do NOT advance src past the oversized payload —
		// the caller is expected to treat this as terminal.
		*src = buf
		return &Frame{Fin: true, Opcode: Close}, nil
	}

	payload := buf[:meta.PayloadLen]
	if meta.Masked {
		applyMask(payload, meta.Mask)
	}

	rest := buf[meta.PayloadLen:]
	*src = rest

	return &Frame{Fin: meta.Fin, Opcode: meta.Opcode, Payload: payload}, nil
}

// ParseCloseBody decodes a Close frame's payload: a big-endian u16 close
// code optionally followed by a UTF-8 (lossy) description.
func ParseCloseBody(payload []byte) (CloseReason, bool) {
	if len(payload) < 2 {
		return CloseReason{}, false
	}
	code := CloseCode(binary.BigEndian.Uint16(payload[:2]))
	if len(payload) > 2 {
		desc := strings.ToValidUTF8(string(payload[2:]), "�")
		return CloseReason{Code: code, Description: desc, HasDesc: true}, true
	}
	return CloseReason{Code: code}, true
}
