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

// runDriver is the cooperative task owning hysteresis: it observes
// accounting transitions and releases waiters in controlled batches. At
// most one instance runs per pool at a time, spawned by poll_ready via the
// pool's SpawnFunc. It is long-lived, re-arming itself by registering its
// waker (driverWake) at the end of every iteration — except when pressure
// has fully drained, in which case it terminates (see driverStep) and a
// fresh one is spawned the next time poll_ready needs it.
func (p *MemoryPool) runDriver() {
	for {
		if p.driverStep() {
			return
		}
		p.driverAlive.Store(true)
		<-p.driverWake
	}
}

// driverStep runs one iteration of spec.md §4.4 and reports whether the
// driver should terminate (pressure has fully drained back to window 0).
func (p *MemoryPool) driverStep() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	allocated := p.allocated.Load()
	low, high := p.windowLow, p.windowHigh

	switch {
	case allocated < low:
		return p.stepFallingLocked(allocated)
	case allocated > high:
		p.stepRisingLocked()
	}
	return false
}

// stepFallingLocked implements the "falling pressure" branch: walk the
// decile table downward from window_idx+1, trickling waiters at each step,
// until either a window is found whose low the current allocation still
// exceeds, or window 10 is reached (full drain).
func (p *MemoryPool) stepFallingLocked(allocated int64) bool {
	idx := p.windowIdx + 1
	waitersToCredit := p.waiters

	for {
		if idx == numWindows {
			p.list.wakeAll()
			p.windowIdx = 0
			p.windowLow = p.windows[0].low
			p.windowHigh = p.windows[0].high
			p.waiters = 0
			p.flags = flagIncreased
			return true
		}

		p.releaseWaitersLocked(waitersToCredit)
		if allocated > p.windows[idx].low {
			p.windowIdx = idx
			p.windowLow = p.windows[idx].low
			p.windowHigh = p.windows[idx].high
			p.waiters = 0
			p.flags = flagSpawned
			return false
		}
		idx++
		waitersToCredit = 0
	}
}

// stepRisingLocked implements the "rising pressure" branch: step the
// window up by one. spec.md §9 open question 3: this assumes window_idx>=1;
// guard against idx<0 rather than leaving it undefined, since window_idx==0
// is max_size itself and stepping further up has no lower decile to adopt.
func (p *MemoryPool) stepRisingLocked() {
	idx := p.windowIdx - 1
	if idx < 0 {
		idx = 0
	}
	p.windowIdx = idx
	p.windowLow = p.windows[idx].low
	p.windowHigh = p.windows[idx].high
	p.waiters = 0
	p.flags = flagSpawned | flagIncreased
}

// releaseWaitersLocked implements spec.md §4.4's release(waiters_num):
// always trickle at least 1/16th of currently queued waiters, crediting an
// additional fraction of the newly registered ones this window. Must be
// called with p.mu held.
func (p *MemoryPool) releaseWaitersLocked(waitersNum int) {
	base := p.list.occupiedLen() / 16
	var credit int
	if waitersNum > base {
		credit = waitersNum / 2
	} else {
		credit = waitersNum
	}

	toRelease := base + credit
	for i := 0; i < toRelease; i++ {
		w, _, ok := p.list.consume()
		if !ok {
			return
		}
		w.wake()
	}
}
