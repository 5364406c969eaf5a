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

import (
	"context"
	"testing"
	"time"
)

func TestPollReadyUnlimitedPool(t *testing.T) {
	p := newAccountingTestPool(0) // maxSize == 0: unlimited
	h := &PoolHandle{pool: p, slot: slotInvalid}

	if !h.PollReady(context.Background()) {
		t.Fatal("PollReady on an unlimited pool should always report ready")
	}
	if h.slot != slotInvalid {
		t.Fatal("PollReady must not register a waiter on the unlimited fast path")
	}
}

func TestPollReadyBelowLowWatermark(t *testing.T) {
	p := newAccountingTestPool(1000)
	p.windowLow = 100
	p.windowHigh = 500
	p.allocated.Store(50) // below windowLow
	f := SpawnFunc(func(task func()) { go task() })
	p.spawn.Store(&f)

	h := &PoolHandle{pool: p, slot: slotInvalid}
	if !h.PollReady(context.Background()) {
		t.Fatal("allocation below the low watermark must always be ready")
	}
}

func TestPollReadyNoSpawnFnDisablesBackpressure(t *testing.T) {
	p := newAccountingTestPool(1000)
	p.windowLow = 100
	p.windowHigh = 500
	p.allocated.Store(9000) // far above every window

	h := &PoolHandle{pool: p, slot: slotInvalid}
	if !h.PollReady(context.Background()) {
		t.Fatal("with no spawn function configured, PollReady must always report ready")
	}
	if h.slot != slotInvalid {
		t.Fatal("the no-spawn-fn path must not register a waiter")
	}
}

func TestPollReadyRegistersUnderPressure(t *testing.T) {
	p := newAccountingTestPool(1000)
	p.windowLow = 100
	p.windowHigh = 500
	p.allocated.Store(9000)
	f := SpawnFunc(func(task func()) {}) // never actually runs the driver
	p.spawn.Store(&f)

	h := &PoolHandle{pool: p, slot: slotInvalid}
	if h.PollReady(context.Background()) {
		t.Fatal("allocation above the low watermark with a spawn fn configured must report not-ready")
	}
	if h.slot == slotInvalid {
		t.Fatal("PollReady must register a waiter when reporting not-ready")
	}
	h.Close()
	if h.slot != slotInvalid {
		t.Fatal("Close must deregister the waiter slot")
	}
}

func TestIsReadyHasNoSideEffects(t *testing.T) {
	p := newAccountingTestPool(1000)
	p.windowLow = 100
	p.windowHigh = 500
	p.allocated.Store(9000)
	f := SpawnFunc(func(task func()) {})
	p.spawn.Store(&f)

	h := &PoolHandle{pool: p, slot: slotInvalid}
	if h.IsReady() {
		t.Fatal("IsReady should report not-ready under pressure")
	}
	if h.slot != slotInvalid {
		t.Fatal("IsReady must never register a waiter")
	}
}

func TestWaitReturnsOnContextCancellation(t *testing.T) {
	p := newAccountingTestPool(1000)
	p.windowLow = 100
	p.windowHigh = 500
	p.allocated.Store(9000)
	// the driver never runs; each poll only wakes the handle through the
	// gentle self-release, so Wait keeps re-polling until ctx expires.
	f := SpawnFunc(func(task func()) {})
	p.spawn.Store(&f)

	h := &PoolHandle{pool: p, slot: slotInvalid}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := h.Wait(ctx)
	if err == nil {
		t.Fatal("expected Wait to return an error on context cancellation")
	}
	if h.slot != slotInvalid {
		t.Fatal("Wait must deregister the waiter slot after ctx.Done()")
	}
}
