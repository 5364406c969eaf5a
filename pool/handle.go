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

package pool

import "context"

// PoolHandle is a caller-side registration handle enabling backpressure via
// PollReady. One PoolHandle belongs to one goroutine at a time, exactly
// like a smux.Stream is documented as single-reader-goroutine despite being
// backed by channels internally.
type PoolHandle struct {
	pool *MemoryPool
	slot int // slotInvalid when not currently registered
	wake *wakeCtx
}

// NewHandle returns a PoolHandle bound to this PoolID's pool.
func (id PoolID) NewHandle() *PoolHandle {
	return &PoolHandle{pool: id.Pool(), slot: slotInvalid}
}

func newWakeCtx() *wakeCtx { return &wakeCtx{ch: make(chan struct{})} }

type wakeCtx struct {
	ch    chan struct{}
	fired bool
}

func (w *wakeCtx) wake() {
	if w.fired {
		return
	}
	w.fired = true
	close(w.ch)
}

// PollReady implements spec.md §4.3. It returns true when the caller may
// proceed with further allocation and false while under backpressure, in
// which case the handle is registered to be woken and the caller should
// either re-poll later or call Wait.
func (h *PoolHandle) PollReady(ctx context.Context) bool {
	p := h.pool

	p.mu.Lock()
	maxSize := p.maxSize
	windowLow := p.windowLow
	p.mu.Unlock()

	// 1. unlimited or disabled pool.
	if maxSize == 0 || windowLow == 0 {
		h.deregister()
		return true
	}

	// 2. falling below the low watermark always clears backpressure.
	if p.allocated.Load() < windowLow {
		h.deregister()
		return true
	}

	// 3. backpressure disabled entirely when no spawn fn is configured.
	spawnPtr := p.spawn.Load()
	if spawnPtr == nil {
		return true
	}

	// 4. register (or refresh) this handle's waker and decide whether it
	// is a "new registration" per spec.md.
	newRegistration := false
	if h.slot == slotInvalid {
		h.wake = newWakeCtx()
		p.mu.Lock()
		h.slot = p.list.append(waker{ctx: h.wake})
		p.mu.Unlock()
		newRegistration = true
	} else {
		h.wake = newWakeCtx()
		p.mu.Lock()
		wasNewRegistration := p.list.update(h.slot, waker{ctx: h.wake})
		p.mu.Unlock()
		newRegistration = wasNewRegistration
	}

	if newRegistration {
		p.mu.Lock()
		if p.flags&flagIncreased == 0 {
			// gentle release under falling pressure: immediately
			// consume and wake one waiter (possibly this one).
			w, _, ok := p.list.consume()
			p.mu.Unlock()
			if ok {
				w.wake()
			}
		} else {
			// hold the line under rising pressure.
			p.waiters++
			p.mu.Unlock()
		}
	}

	p.mu.Lock()
	alreadySpawned := p.flags&flagSpawned != 0
	if !alreadySpawned {
		p.flags |= flagSpawned
	}
	p.mu.Unlock()

	if !alreadySpawned {
		fn := *spawnPtr
		fn(func() { p.runDriver() })
	}

	return false
}

func (h *PoolHandle) deregister() {
	if h.slot == slotInvalid {
		return
	}
	p := h.pool
	p.mu.Lock()
	p.list.remove(h.slot)
	p.mu.Unlock()
	h.slot = slotInvalid
}

// IsReady reports readiness without registering a waker (a snapshot,
// equivalent to PollReady's fast paths 1-3 without side effects).
func (h *PoolHandle) IsReady() bool {
	p := h.pool
	p.mu.Lock()
	maxSize := p.maxSize
	windowLow := p.windowLow
	p.mu.Unlock()

	if maxSize == 0 || windowLow == 0 {
		return true
	}
	if p.allocated.Load() < windowLow {
		return true
	}
	if p.spawn.Load() == nil {
		return true
	}
	return false
}

// Wait blocks until PollReady would return true, or ctx is done. It
// repeatedly polls and, when pending, awaits either this handle's waker
// firing or context cancellation — the blocking convenience wrapper atop
// the non-blocking core primitive, the same two-layer shape kcp-go/smux
// use (e.g. stream.Read looping on ErrWouldBlock + waitRead).
func (h *PoolHandle) Wait(ctx context.Context) error {
	for {
		if h.PollReady(ctx) {
			return nil
		}
		select {
		case <-h.wake.ch:
			continue
		case <-ctx.Done():
			h.deregister()
			return ctx.Err()
		}
	}
}

// Close releases this handle's waiter-list slot, if any. Callers that stop
// polling (cancellation/timeout/drop) must call Close so a held slot
// doesn't linger; mirrors spec.md §5's "a caller may drop its pool handle
// at any time; this must remove(slot) from the waiter list."
func (h *PoolHandle) Close() {
	h.deregister()
}
