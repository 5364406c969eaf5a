package pool

import "testing"

func newBufferTestPool() *MemoryPool {
	return &MemoryPool{
		list:       newWaiterList(),
		driverWake: make(chan struct{}, 1),
		readHigh:   4096,
		readLow:    1024,
		writeHigh:  2048,
		writeLow:   512,
		windowLow:  0,
		windowHigh: 1 << 62,
	}
}

func TestBufWithCapacityAccounting(t *testing.T) {
	p := newBufferTestPool()
	ref := &PoolRef{pool: p}

	b := ref.BufWithCapacity(100)
	if got := ref.Allocated(); got != 100 {
		t.Fatalf("expected 100 allocated, got %d", got)
	}
	if b.Cap() != 100 || b.Len() != 0 {
		t.Fatalf("unexpected buf cap=%d len=%d", b.Cap(), b.Len())
	}

	b.Release()
	if got := ref.Allocated(); got != 0 {
		t.Fatalf("expected 0 allocated after release, got %d", got)
	}

	// a second Release must be a no-op, not a double credit.
	b.Release()
	if got := ref.Allocated(); got != 0 {
		t.Fatalf("expected allocated to stay 0 after double release, got %d", got)
	}
}

func TestReadCacheAdmitsWithinWatermarkBand(t *testing.T) {
	p := newBufferTestPool()
	ref := &PoolRef{pool: p}

	inBand := ref.BufWithCapacity(2048) // (1024, 4096]
	ref.ReleaseReadBuf(inBand)
	if len(p.readCache) != 1 {
		t.Fatalf("expected buf cached, got readCache len=%d", len(p.readCache))
	}

	tooSmall := ref.BufWithCapacity(500) // below readLow
	ref.ReleaseReadBuf(tooSmall)
	if len(p.readCache) != 1 {
		t.Fatalf("expected undersized buf rejected from cache, got len=%d", len(p.readCache))
	}
}

func TestReadCacheRejectsWhenFull(t *testing.T) {
	p := newBufferTestPool()
	ref := &PoolRef{pool: p}

	for i := 0; i < cacheCapacity; i++ {
		b := ref.BufWithCapacity(2048)
		ref.ReleaseReadBuf(b)
	}
	if len(p.readCache) != cacheCapacity {
		t.Fatalf("expected cache full at %d, got %d", cacheCapacity, len(p.readCache))
	}

	overflow := ref.BufWithCapacity(2048)
	before := ref.Allocated()
	ref.ReleaseReadBuf(overflow)
	if len(p.readCache) != cacheCapacity {
		t.Fatalf("expected cache to stay at capacity, got %d", len(p.readCache))
	}
	if got := ref.Allocated(); got != before-2048 {
		t.Fatalf("expected overflow buf's capacity released from the accountant, got %d (was %d)", got, before)
	}
}

func TestGetReadBufReusesCache(t *testing.T) {
	p := newBufferTestPool()
	ref := &PoolRef{pool: p}

	b := ref.BufWithCapacity(2048)
	b.data = append(b.data, 1, 2, 3)
	ref.ReleaseReadBuf(b)

	reused := ref.GetReadBuf()
	if reused != b {
		t.Fatal("expected GetReadBuf to reuse the cached buffer")
	}
	if reused.Len() != 0 {
		t.Fatalf("expected reused buffer cleared, got len=%d", reused.Len())
	}
}

func TestGetReadBufAllocatesFreshWhenCacheEmpty(t *testing.T) {
	p := newBufferTestPool()
	ref := &PoolRef{pool: p}

	b := ref.GetReadBuf()
	if b.Cap() != p.readHigh {
		t.Fatalf("expected fresh buf sized to readHigh=%d, got %d", p.readHigh, b.Cap())
	}
}

func TestResizeReadBufUsesWriteWatermarks(t *testing.T) {
	p := newBufferTestPool()
	ref := &PoolRef{pool: p}

	// trailing capacity 0 is below both readLow(1024) and writeLow(512);
	// the faithful quirk is that resize always measures against the write
	// watermarks, not read, so the grown size must match writeHigh's band.
	b := ref.BufWithCapacity(0)
	b.data = b.data[:0]
	ref.ResizeReadBuf(b)

	trailing := b.Cap() - b.Len()
	if trailing != p.writeHigh {
		t.Fatalf("expected buffer grown by writeHigh=%d (not readHigh=%d), got trailing=%d", p.writeHigh, p.readHigh, trailing)
	}
}

func TestWriteCacheRoundTrip(t *testing.T) {
	p := newBufferTestPool()
	ref := &PoolRef{pool: p}

	b := ref.BufWithCapacity(1500) // (512, 2048]
	ref.ReleaseWriteBuf(b)
	if len(p.writeCache) != 1 {
		t.Fatalf("expected write buf cached, got %d", len(p.writeCache))
	}

	reused := ref.GetWriteBuf()
	if reused != b {
		t.Fatal("expected GetWriteBuf to reuse the cached buffer")
	}
}
