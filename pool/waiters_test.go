package pool

import "testing"

func newTestWaker() (waker, *wakeCtx) {
	ctx := newWakeCtx()
	return waker{ctx: ctx}, ctx
}

func TestWaiterListFIFOOrder(t *testing.T) {
	l := newWaiterList()

	_, c1 := newTestWaker()
	_, c2 := newTestWaker()
	_, c3 := newTestWaker()

	l.append(waker{ctx: c1})
	l.append(waker{ctx: c2})
	l.append(waker{ctx: c3})

	if l.occupiedLen() != 3 {
		t.Fatalf("expected 3 occupied, got %d", l.occupiedLen())
	}

	for _, want := range []*wakeCtx{c1, c2, c3} {
		w, _, ok := l.consume()
		if !ok {
			t.Fatal("expected a waiter")
		}
		if w.ctx != want {
			t.Fatalf("FIFO order violated")
		}
	}

	if _, _, ok := l.consume(); ok {
		t.Fatal("expected empty list")
	}
}

func TestWaiterListAppendReusesFreeSlot(t *testing.T) {
	l := newWaiterList()

	w1, _ := newTestWaker()
	idx1 := l.append(w1)
	// a second waiter keeps the list non-empty, so remove does not
	// truncate the arena and the freed slot goes onto the free-list.
	keep, _ := newTestWaker()
	l.append(keep)
	l.remove(idx1)

	w2, _ := newTestWaker()
	idx2 := l.append(w2)

	if idx2 != idx1 {
		t.Fatalf("expected free-list reuse, got new idx %d (freed %d)", idx2, idx1)
	}
}

func TestWaiterListUpdateOccupiedVsConsumed(t *testing.T) {
	l := newWaiterList()
	w1, _ := newTestWaker()
	idx := l.append(w1)

	w2, _ := newTestWaker()
	if isNew := l.update(idx, w2); isNew {
		t.Fatal("update on an Occupied slot must not count as a new registration")
	}

	// consume it, then update should re-enter as a new registration.
	if _, _, ok := l.consume(); !ok {
		t.Fatal("expected a waiter")
	}
	w3, _ := newTestWaker()
	if isNew := l.update(idx, w3); !isNew {
		t.Fatal("update on a Consumed slot must count as a new registration")
	}
	if l.occupiedLen() != 1 {
		t.Fatalf("expected 1 occupied after re-entry, got %d", l.occupiedLen())
	}
}

func TestWaiterListUpdateOnVacantPanics(t *testing.T) {
	l := newWaiterList()
	w, _ := newTestWaker()
	idx := l.append(w)
	l.remove(idx)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic updating a vacant slot")
		}
	}()
	l.update(idx, w)
}

func TestWaiterListRemoveMidList(t *testing.T) {
	l := newWaiterList()
	_, c1 := newTestWaker()
	_, c2 := newTestWaker()
	_, c3 := newTestWaker()

	l.append(waker{ctx: c1})
	idx2 := l.append(waker{ctx: c2})
	l.append(waker{ctx: c3})

	l.remove(idx2)

	if l.occupiedLen() != 2 {
		t.Fatalf("expected 2 occupied, got %d", l.occupiedLen())
	}

	w, _, ok := l.consume()
	if !ok || w.ctx != c1 {
		t.Fatal("expected c1 first")
	}
	w, _, ok = l.consume()
	if !ok || w.ctx != c3 {
		t.Fatal("expected c3 second, c2 should have been removed")
	}
}

func TestWaiterListTruncateOnEmpty(t *testing.T) {
	l := newWaiterList()
	for i := 0; i < 200; i++ {
		w, _ := newTestWaker()
		l.append(w)
	}
	for l.occupiedLen() > 0 {
		w, idx, ok := l.consume()
		_ = w
		if !ok {
			break
		}
		l.remove(idx)
	}
	if cap(l.slots) > waiterListShrinkCap {
		t.Fatalf("expected arena shrunk to <= %d, got cap %d", waiterListShrinkCap, cap(l.slots))
	}
	if l.root != slotInvalid || l.tail != slotInvalid || l.freeHead != slotInvalid {
		t.Fatal("expected list pointers reset after truncate")
	}
}

func TestWaiterListWakeAll(t *testing.T) {
	l := newWaiterList()
	var ctxs []*wakeCtx
	for i := 0; i < 5; i++ {
		w, c := newTestWaker()
		l.append(w)
		ctxs = append(ctxs, c)
	}

	n := l.wakeAll()
	if n != 5 {
		t.Fatalf("expected 5 woken, got %d", n)
	}
	for _, c := range ctxs {
		select {
		case <-c.ch:
		default:
			t.Fatal("expected wake channel to be closed")
		}
	}
	if l.occupiedLen() != 0 {
		t.Fatalf("expected list drained, got %d occupied", l.occupiedLen())
	}
}
