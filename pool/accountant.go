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

import "math"

const numWindows = 10

// window is one decile band of `allocated` values within which the driver
// stays quiescent.
type window struct {
	low  int64
	high int64
}

const flagSpawned uint32 = 1 << 0
const flagIncreased uint32 = 1 << 1

// buildWindows recomputes the 10 decile windows from maxSize, per
// spec.md's invariant: windows[0] = (maxSize, +Inf); windows[i] =
// (maxSize - maxSize/100*i, windows[i-1].low) for i in [1,9]. The 1% step
// is intentional and must be preserved verbatim.
func buildWindows(maxSize int64) [numWindows]window {
	var w [numWindows]window
	w[0] = window{low: maxSize, high: math.MaxInt64}
	for i := 1; i < numWindows; i++ {
		w[i] = window{
			low:  maxSize - (maxSize/100)*int64(i),
			high: w[i-1].low,
		}
	}
	return w
}

// acquire accounts n newly-outstanding bytes and, if the driver is alive
// and the update crosses out of the current window, wakes it. Mirrors
// smux.Session's bucket/bucketNotify debounced-wake idiom: atomic add and a
// cheap non-blocking notify; the window bounds are read under p.mu.
func (p *MemoryPool) acquire(n int64) {
	if n == 0 {
		return
	}
	newVal := p.allocated.Add(n)
	p.maybeWakeDriver(newVal)
}

// release accounts n bytes no longer outstanding.
func (p *MemoryPool) release(n int64) {
	if n == 0 {
		return
	}
	newVal := p.allocated.Add(-n)
	p.maybeWakeDriver(newVal)
}

// maybeWakeDriver implements spec.md §4.2: after each update, if the
// driver's waker is alive and the new allocated value has crossed out of
// [window_low, window_high], clear alive and notify the driver.
func (p *MemoryPool) maybeWakeDriver(allocated int64) {
	p.mu.Lock()
	low, high := p.windowLow, p.windowHigh
	p.mu.Unlock()

	if allocated >= low && allocated <= high {
		return
	}
	if p.driverAlive.CompareAndSwap(true, false) {
		select {
		case p.driverWake <- struct{}{}:
		default:
		}
	}
}

// Allocated returns the number of bytes currently outstanding on this pool.
func (p *MemoryPool) Allocated() int64 {
	return p.allocated.Load()
}
