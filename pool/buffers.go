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

// Buf is a pool-allocated byte buffer. It carries the PoolRef that
// allocated it so Release() always credits the right pool's accountant —
// the Go stand-in for spec.md's "Buffer carries the PoolRef that allocated
// it so its destructor calls release(capacity) on the correct pool"; Go has
// no destructors, so Release must be called explicitly.
type Buf struct {
	data     []byte
	ref      *PoolRef
	released bool
}

// Bytes returns the buffer's current contents.
func (b *Buf) Bytes() []byte { return b.data }

// Cap returns the buffer's allocated capacity.
func (b *Buf) Cap() int { return cap(b.data) }

// Len returns the buffer's current length.
func (b *Buf) Len() int { return len(b.data) }

// Clear truncates the buffer to zero length without releasing capacity.
func (b *Buf) Clear() { b.data = b.data[:0] }

// Full returns the buffer's entire backing array, for callers (typically a
// raw Read) that need to address capacity beyond the current length.
func (b *Buf) Full() []byte { return b.data[:cap(b.data)] }

// SetLen resizes the buffer's reported length to n, which must not exceed
// Cap. Pairs with Full for a Read-then-SetLen sequence.
func (b *Buf) SetLen(n int) { b.data = b.data[:n] }

// Reserve grows capacity by at least n bytes beyond the current length,
// reallocating if necessary. This is the one BytesMut/BytesVec operation
// this package actually invokes (capacity/reserve/clear/allocate-in-pool),
// per spec.md §1's "out of scope" carve-out for the underlying allocator.
func (b *Buf) Reserve(n int) {
	if cap(b.data)-len(b.data) >= n {
		return
	}
	grown := make([]byte, len(b.data), len(b.data)+n)
	copy(grown, b.data)
	b.ref.pool.acquire(int64(cap(grown) - cap(b.data)))
	b.data = grown
}

// Release returns the buffer's capacity to the accountant. It does not put
// the buffer into a cache; ReleaseReadBuf/ReleaseWriteBuf do that. A
// double Release is a no-op.
func (b *Buf) Release() {
	if b.released {
		return
	}
	b.released = true
	b.ref.pool.release(int64(cap(b.data)))
}

// PoolRef is a lightweight handle performing allocation accounting and
// buffer caching against a single MemoryPool.
type PoolRef struct {
	pool *MemoryPool
}

// Allocated returns bytes currently outstanding on the referenced pool.
func (r *PoolRef) Allocated() int { return int(r.pool.allocated.Load()) }

// BufWithCapacity allocates a fresh buffer of capacity n, charging n bytes
// to the pool's accountant.
func (r *PoolRef) BufWithCapacity(n int) *Buf {
	r.pool.acquire(int64(n))
	return &Buf{data: make([]byte, 0, n), ref: r}
}

// VecWithCapacity is an alias for BufWithCapacity kept for parity with
// spec.md's vec_with_capacity, since this package has no separate
// Bytes/BytesVec distinction.
func (r *PoolRef) VecWithCapacity(n int) *Buf {
	return r.BufWithCapacity(n)
}

// GetReadBuf pops a buffer from the read cache (after clearing it) or
// allocates a fresh one sized to the read high watermark.
func (r *PoolRef) GetReadBuf() *Buf {
	p := r.pool
	p.mu.Lock()
	n := len(p.readCache)
	var buf *Buf
	if n > 0 {
		buf = p.readCache[n-1]
		p.readCache = p.readCache[:n-1]
	}
	high := p.readHigh
	p.mu.Unlock()

	if buf != nil {
		buf.Clear()
		buf.released = false
		return buf
	}
	return r.BufWithCapacity(high)
}

// ReleaseReadBuf accepts b into the read cache iff its capacity lies in
// (low, high] and the cache holds fewer than cacheCapacity entries;
// otherwise it is dropped, which releases its capacity from the accountant.
func (r *PoolRef) ReleaseReadBuf(b *Buf) {
	p := r.pool
	p.mu.Lock()
	low, high := p.readLow, p.readHigh
	fits := b.Cap() > low && b.Cap() <= high
	if fits && len(p.readCache) < cacheCapacity {
		p.readCache = append(p.readCache, b)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	b.Release()
}

// ResizeReadBuf grows b if its trailing capacity is below the low
// watermark. Preserves spec.md §4.5/§9's faithful quirk: the source reads
// write_wm, not read_wm, inside resize_read_buf. Do not "fix" this.
func (r *PoolRef) ResizeReadBuf(b *Buf) {
	p := r.pool
	p.mu.Lock()
	low, high := p.writeLow, p.writeHigh // sic: write_wm, see doc comment above
	p.mu.Unlock()

	trailing := b.Cap() - b.Len()
	if trailing < low {
		b.Reserve(high - trailing)
	}
}

// GetWriteBuf is GetReadBuf's write-cache counterpart.
func (r *PoolRef) GetWriteBuf() *Buf {
	p := r.pool
	p.mu.Lock()
	n := len(p.writeCache)
	var buf *Buf
	if n > 0 {
		buf = p.writeCache[n-1]
		p.writeCache = p.writeCache[:n-1]
	}
	high := p.writeHigh
	p.mu.Unlock()

	if buf != nil {
		buf.Clear()
		buf.released = false
		return buf
	}
	return r.BufWithCapacity(high)
}

// ReleaseWriteBuf is ReleaseReadBuf's write-cache counterpart.
func (r *PoolRef) ReleaseWriteBuf(b *Buf) {
	p := r.pool
	p.mu.Lock()
	low, high := p.writeLow, p.writeHigh
	fits := b.Cap() > low && b.Cap() <= high
	if fits && len(p.writeCache) < cacheCapacity {
		p.writeCache = append(p.writeCache, b)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	b.Release()
}

// ResizeWriteBuf grows b if its trailing capacity is below the write low
// watermark.
func (r *PoolRef) ResizeWriteBuf(b *Buf) {
	p := r.pool
	p.mu.Lock()
	low, high := p.writeLow, p.writeHigh
	p.mu.Unlock()

	trailing := b.Cap() - b.Len()
	if trailing < low {
		b.Reserve(high - trailing)
	}
}
