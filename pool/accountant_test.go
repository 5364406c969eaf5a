package pool

import (
	"math"
	"testing"
)

func TestBuildWindows(t *testing.T) {
	w := buildWindows(1000)

	if w[0].low != 1000 || w[0].high != math.MaxInt64 {
		t.Fatalf("window 0 = %+v", w[0])
	}
	if w[1].low != 990 || w[1].high != 1000 {
		t.Fatalf("window 1 = %+v", w[1])
	}
	if w[9].low != 910 || w[9].high != 920 {
		t.Fatalf("window 9 = %+v", w[9])
	}
	for i := 1; i < numWindows; i++ {
		if w[i].high != w[i-1].low {
			t.Fatalf("window %d.high (%d) != window %d.low (%d)", i, w[i].high, i-1, w[i-1].low)
		}
	}
}

func newAccountingTestPool(maxSize int64) *MemoryPool {
	p := &MemoryPool{
		list:       newWaiterList(),
		driverWake: make(chan struct{}, 1),
		maxSize:    maxSize,
		windows:    buildWindows(maxSize),
	}
	p.windowLow = p.windows[0].low
	p.windowHigh = p.windows[0].high
	return p
}

func TestAcquireReleaseAccounting(t *testing.T) {
	p := newAccountingTestPool(1000)

	p.acquire(300)
	if got := p.Allocated(); got != 300 {
		t.Fatalf("expected 300 allocated, got %d", got)
	}

	p.release(100)
	if got := p.Allocated(); got != 200 {
		t.Fatalf("expected 200 allocated, got %d", got)
	}
}

func TestMaybeWakeDriverOnlyWhenCrossingWindow(t *testing.T) {
	p := newAccountingTestPool(1000)
	p.driverAlive.Store(true)

	// force a [100, 500] window so the acquire below lands outside it.
	p.windowLow = 100
	p.windowHigh = 500

	p.acquire(50) // 50 is below windowLow=100 -> should wake
	select {
	case <-p.driverWake:
	default:
		t.Fatal("expected driver to be woken when crossing below windowLow")
	}
	if p.driverAlive.Load() {
		t.Fatal("expected driverAlive cleared after waking")
	}
}

func TestMaybeWakeDriverSkipsWhenInsideWindow(t *testing.T) {
	p := newAccountingTestPool(1000)
	p.driverAlive.Store(true)
	p.windowLow = 0
	p.windowHigh = 1000

	p.acquire(500)
	select {
	case <-p.driverWake:
		t.Fatal("did not expect a wake while inside the window")
	default:
	}
	if !p.driverAlive.Load() {
		t.Fatal("expected driverAlive to remain set")
	}
}

func TestMaybeWakeDriverSkipsWhenNotAlive(t *testing.T) {
	p := newAccountingTestPool(1000)
	// driverAlive left false (zero value): no driver to wake.
	p.windowLow = 100
	p.windowHigh = 500

	p.acquire(10) // crosses below windowLow, but no driver registered
	select {
	case <-p.driverWake:
		t.Fatal("did not expect a wake when no driver was alive")
	default:
	}
}
