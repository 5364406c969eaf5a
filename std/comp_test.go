package std

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"testing"
)

// roundTripCompStream pushes payload through a CompStream pair wired over a
// net.Pipe and reports a read-side mismatch, mirroring how kcpws-relay wraps
// a KCP session on both ends before smux ever sees it.
func roundTripCompStream(t *testing.T, payload []byte) {
	t.Helper()

	left, right := net.Pipe()
	compWriter := NewCompStream(left)
	compReader := NewCompStream(right)
	t.Cleanup(func() {
		compWriter.Close()
		compReader.Close()
	})

	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, len(payload))
		if _, err := io.ReadFull(compReader, buf); err != nil {
			readErr <- fmt.Errorf("read compressed data: %w", err)
			return
		}
		if !bytes.Equal(buf, payload) {
			sample := buf
			if len(sample) > 64 {
				sample = sample[:64]
			}
			readErr <- fmt.Errorf("unexpected payload prefix: %x", sample)
			return
		}
		readErr <- nil
	}()

	writeBuf := append([]byte(nil), payload...)
	if n, err := compWriter.Write(writeBuf); err != nil {
		t.Fatalf("compWriter.Write error: %v", err)
	} else if n != len(writeBuf) {
		t.Fatalf("write returned %d, want %d", n, len(writeBuf))
	}

	if err := compWriter.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	if err := <-readErr; err != nil {
		t.Fatalf("reader error: %v", err)
	}
}

func TestCompStreamRoundTrip(t *testing.T) {
	roundTripCompStream(t, bytes.Repeat([]byte("compressed payload"), 64))
}

// TestCompStreamRoundTripFrameSized exercises a payload sized like a single
// pool-backed WebSocket frame (well under the default 4096-byte read high
// watermark), the common case for kcpws-relay's echoed Text/Binary frames.
func TestCompStreamRoundTripFrameSized(t *testing.T) {
	roundTripCompStream(t, bytes.Repeat([]byte("ws-frame-payload"), 8))
}
