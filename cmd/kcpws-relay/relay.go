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

package main

import (
	"context"
	"io"
	"log"

	"github.com/fatih/color"
	"github.com/xtaci/kcpws/pool"
	"github.com/xtaci/kcpws/wsframe"
)

// serveStream reads incrementally-framed WebSocket messages off stream,
// echoing Text/Binary payloads, answering Ping with Pong, and closing on
// Close. Every chunk read off the wire and every echoed or Pong frame
// written back is backed by a pool-managed buffer (the Close reply is not):
// GetReadBuf/ReleaseReadBuf cycle the read side, BufWithCapacity/Release
// account the write side, and handle.Wait
// applies backpressure between reads whenever the pool is under pressure.
func serveStream(stream io.ReadWriteCloser, ref *pool.PoolRef, cfg *Config, isServer bool) {
	defer stream.Close()

	handle := relayPoolID.NewHandle()
	defer handle.Close()

	maxSize := uint64(cfg.MaxFrame)
	var pending []byte

	for {
		if err := handle.Wait(context.Background()); err != nil {
			return
		}

		buf := ref.GetReadBuf()
		n, rerr := stream.Read(buf.Full())
		if n > 0 {
			buf.SetLen(n)
			pending = append(pending, buf.Bytes()...)
		}
		ref.ReleaseReadBuf(buf)
		if rerr != nil {
			return
		}

		for {
			frame, ferr := wsframe.Parse(&pending, isServer, maxSize)
			if ferr != nil {
				if !cfg.Quiet {
					color.Red("frame error: %v", ferr)
				}
				return
			}
			if frame == nil {
				break // NeedMore: wait for the next read
			}
			if !handleFrame(stream, ref, isServer, frame, cfg) {
				return
			}
		}
	}
}

// handleFrame dispatches one parsed frame and reports whether the stream
// should continue.
func handleFrame(stream io.Writer, ref *pool.PoolRef, isServer bool, frame *wsframe.Frame, cfg *Config) bool {
	mask := !isServer // clients must mask outgoing frames, servers must not

	switch frame.Opcode {
	case wsframe.Text, wsframe.Binary:
		if !cfg.Quiet {
			log.Printf("echoing %s frame (%d bytes)", frame.Opcode, len(frame.Payload))
		}
		if err := writeFrame(stream, ref, frame.Payload, frame.Opcode, mask); err != nil {
			return false
		}
	case wsframe.Ping:
		if err := writeFrame(stream, ref, frame.Payload, wsframe.Pong, mask); err != nil {
			return false
		}
	case wsframe.Pong:
		// no action required
	case wsframe.Close:
		var dst []byte
		wsframe.WriteClose(&dst, nil, mask)
		_, _ = stream.Write(dst)
		return false
	}
	return true
}

// writeFrame serializes one frame into a pool-accounted buffer and flushes
// it to stream.
func writeFrame(stream io.Writer, ref *pool.PoolRef, payload []byte, opcode wsframe.Opcode, mask bool) error {
	buf := ref.BufWithCapacity(len(payload) + 14)
	defer buf.Release()

	out := buf.Bytes()
	wsframe.WriteMessage(&out, payload, opcode, true, mask)
	_, err := stream.Write(out)
	return err
}
