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

// waker is the minimal notification primitive a waiter slot holds: a
// reference to the wakeCtx a PoolHandle is currently blocked on (see
// handle.go). wake() is idempotent and safe to call from the driver
// goroutine.
type waker struct {
	ctx *wakeCtx
}

func (w *waker) wake() {
	if w.ctx != nil {
		w.ctx.wake()
	}
}

const slotInvalid = -1

type slotState int

const (
	slotVacant slotState = iota
	slotOccupied
	slotConsumed
)

// waiterSlot is one entry of the intrusive slotted FIFO. Exactly one of
// the three slotState values holds at any time.
type waiterSlot struct {
	state slotState
	waker waker

	// valid only when state == slotOccupied
	prev int
	next int

	// valid only when state == slotVacant: next free slot, or slotInvalid
	nextFree int
}

// waiterList is the arena-backed intrusive doubly-linked FIFO of waiters,
// grounded on the parallel-slice index bookkeeping smux/stream.go uses for
// its buffers/heads slices (index arithmetic instead of pointers).
type waiterList struct {
	slots     []waiterSlot
	freeHead  int
	root      int
	tail      int
	occupied  int // number of Occupied entries
	consumed  int // number of Consumed entries
}

func newWaiterList() *waiterList {
	return &waiterList{freeHead: slotInvalid, root: slotInvalid, tail: slotInvalid}
}

func (l *waiterList) len() int { return l.occupied + l.consumed }

func (l *waiterList) occupiedLen() int { return l.occupied }

// append pushes a new Occupied node at the tail, reusing a Vacant slot from
// the free-list when available, else growing the arena. O(1).
func (l *waiterList) append(w waker) int {
	idx := l.allocSlot()
	l.slots[idx] = waiterSlot{state: slotOccupied, waker: w, prev: l.tail, next: slotInvalid}

	if l.tail != slotInvalid {
		l.slots[l.tail].next = idx
	} else {
		l.root = idx
	}
	l.tail = idx
	l.occupied++
	return idx
}

func (l *waiterList) allocSlot() int {
	if l.freeHead != slotInvalid {
		idx := l.freeHead
		l.freeHead = l.slots[idx].nextFree
		return idx
	}
	l.slots = append(l.slots, waiterSlot{})
	return len(l.slots) - 1
}

// update replaces the waker at idx. If the slot is Occupied, the waker is
// swapped in place and false is returned (no new registration). If
// Consumed, the slot is re-linked at the tail and true is returned (the
// caller is re-entering the queue). Vacant is a contract violation.
func (l *waiterList) update(idx int, w waker) bool {
	slot := &l.slots[idx]
	switch slot.state {
	case slotOccupied:
		slot.waker = w
		return false
	case slotConsumed:
		l.consumed--
		slot.state = slotOccupied
		slot.waker = w
		slot.prev = l.tail
		slot.next = slotInvalid
		if l.tail != slotInvalid {
			l.slots[l.tail].next = idx
		} else {
			l.root = idx
		}
		l.tail = idx
		l.occupied++
		return true
	default: // slotVacant
		panic("pool: update on vacant waiter slot")
	}
}

// consume pops the root entry, marks it Consumed (the slot index is still
// owned by the original caller) and unlinks it from the head. Returns
// (waker, idx, true) or (waker{}, -1, false) if the list is empty.
func (l *waiterList) consume() (waker, int, bool) {
	if l.root == slotInvalid {
		return waker{}, slotInvalid, false
	}
	idx := l.root
	slot := &l.slots[idx]
	w := slot.waker

	l.root = slot.next
	if l.root != slotInvalid {
		l.slots[l.root].prev = slotInvalid
	} else {
		l.tail = slotInvalid
	}

	slot.state = slotConsumed
	slot.prev = slotInvalid
	slot.next = slotInvalid
	l.occupied--
	l.consumed++
	return w, idx, true
}

// remove unlinks the node at idx from whatever position it occupies and
// returns it to the free-list as Vacant. If the list becomes fully empty
// the backing arena is shrunk, matching spec.md's "truncate to 128".
func (l *waiterList) remove(idx int) {
	slot := &l.slots[idx]
	switch slot.state {
	case slotOccupied:
		if slot.prev != slotInvalid {
			l.slots[slot.prev].next = slot.next
		} else {
			l.root = slot.next
		}
		if slot.next != slotInvalid {
			l.slots[slot.next].prev = slot.prev
		} else {
			l.tail = slot.prev
		}
		l.occupied--
	case slotConsumed:
		l.consumed--
	case slotVacant:
		return // already vacant, nothing to do
	}

	slot.state = slotVacant
	slot.nextFree = l.freeHead
	l.freeHead = idx

	if l.len() == 0 {
		l.truncate()
	}
}

const waiterListShrinkCap = 128

// truncate drops the backing arena down to a fresh 128-capacity slice once
// every slot is Vacant, so a pool that saw a burst of waiters doesn't keep
// an oversized arena alive forever.
func (l *waiterList) truncate() {
	if cap(l.slots) <= waiterListShrinkCap {
		l.slots = l.slots[:0]
	} else {
		l.slots = make([]waiterSlot, 0, waiterListShrinkCap)
	}
	l.freeHead = slotInvalid
	l.root = slotInvalid
	l.tail = slotInvalid
}

// wakeAll consumes and wakes every currently Occupied waiter, used by
// SetPoolSize's immediate release and by the driver's window-10 reset.
func (l *waiterList) wakeAll() int {
	n := 0
	for {
		w, _, ok := l.consume()
		if !ok {
			break
		}
		w.wake()
		n++
	}
	return n
}
