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

// Package pool implements a fixed bank of 16 backpressure-aware byte-buffer
// pools. Each pool tracks aggregate allocation against a configurable
// ceiling through a sliding decile-window admission scheme: once
// allocation crosses a decile threshold, new consumers are suspended via
// poll_ready and progressively released as allocation recedes, with the
// hysteresis owned by a single background driver goroutine per pool.
//
// The design is grounded on github.com/xtaci/smux's allocator
// (smux/alloc.go) and token-bucket notify idiom (smux/session.go's
// bucket/bucketNotify), generalized to the windowed admission-control
// scheme this package implements.
package pool

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// PoolID identifies one of the 16 fixed pool slots. IDs are small integer
// constants; 15 is the default pool.
type PoolID int

// The 16 fixed pool identifiers. Index 15 is the default.
const (
	PoolID0 PoolID = iota
	PoolID1
	PoolID2
	PoolID3
	PoolID4
	PoolID5
	PoolID6
	PoolID7
	PoolID8
	PoolID9
	PoolID10
	PoolID11
	PoolID12
	PoolID13
	PoolID14
	PoolID15
)

// DefaultPoolID is the pool used when no specific pool is selected.
const DefaultPoolID = PoolID15

// NumPools is the fixed size of the per-process pool bank.
const NumPools = 16

const (
	defaultReadHigh  = 4096
	defaultReadLow   = 1024
	defaultWriteHigh = 4096
	defaultWriteLow  = 1024
	cacheCapacity    = 16
)

// SpawnFunc spawns a long-lived driver task. Its absence on a pool disables
// backpressure entirely: poll_ready is then always ready, matching
// spec.md's "spawn: optional task-spawn callback; absent => backpressure is
// disabled" rule.
type SpawnFunc func(task func())

// MemoryPool is one per-PoolID, process-lifetime accountant and waiter
// queue. Exported as *MemoryPool (not copyable); obtained via PoolID.Pool().
type MemoryPool struct {
	id PoolID

	allocated atomic.Int64
	maxSize   int64 // 0 == unlimited/disabled

	mu         sync.Mutex // guards window state and waiter list below
	windows    [numWindows]window
	windowIdx  int
	windowLow  int64
	windowHigh int64
	waiters    int // window_waiters
	flags      uint32
	list       *waiterList

	readHigh, readLow   int
	writeHigh, writeLow int
	readCache           []*Buf
	writeCache          []*Buf

	driverWake  chan struct{}
	driverAlive atomic.Bool
	spawn       atomic.Pointer[SpawnFunc]
}

var (
	bank     [NumPools]*MemoryPool
	bankOnce [NumPools]sync.Once
	bankMu   sync.Mutex
)

// Pool returns the process-wide MemoryPool for this PoolID, constructing it
// with defaults on first access. Mirrors smux's package-level
// defaultAllocator, lazily built once per slot instead of once globally.
func (id PoolID) Pool() *MemoryPool {
	bankOnce[id].Do(func() {
		p := &MemoryPool{
			id:         id,
			readHigh:   defaultReadHigh,
			readLow:    defaultReadLow,
			writeHigh:  defaultWriteHigh,
			writeLow:   defaultWriteLow,
			list:       newWaiterList(),
			driverWake: make(chan struct{}, 1),
			windowLow:  0,
			windowHigh: math.MaxInt64,
		}
		bankMu.Lock()
		bank[id] = p
		bankMu.Unlock()
	})
	return bank[id]
}

// PoolRef returns a lightweight handle performing allocation accounting and
// buffer caching on this pool.
func (id PoolID) PoolRef() *PoolRef {
	return &PoolRef{pool: id.Pool()}
}

// SetPoolSize sets max_size, resets the window to the bottom (window 0),
// recomputes the decile table, and wakes every currently queued waiter —
// per spec.md §4.6.
func (id PoolID) SetPoolSize(n int) {
	p := id.Pool()
	p.mu.Lock()
	p.maxSize = int64(n)
	p.windows = buildWindows(p.maxSize)
	p.windowIdx = 0
	p.windowLow = p.windows[0].low
	p.windowHigh = p.windows[0].high
	p.waiters = 0
	p.flags |= flagIncreased
	p.list.wakeAll()
	p.mu.Unlock()
}

// SetReadParams sets the read buffer watermarks. Requires low < high.
func (id PoolID) SetReadParams(high, low int) error {
	if low >= high {
		return errors.Errorf("pool: read params require low < high (got low=%d high=%d)", low, high)
	}
	p := id.Pool()
	p.mu.Lock()
	p.readHigh, p.readLow = high, low
	p.mu.Unlock()
	return nil
}

// MustSetReadParams is SetReadParams but panics on violation, matching
// spec.md §7's framing of low>=high as a programming error.
func (id PoolID) MustSetReadParams(high, low int) {
	if err := id.SetReadParams(high, low); err != nil {
		panic(err)
	}
}

// SetWriteParams sets the write buffer watermarks. Requires low < high.
func (id PoolID) SetWriteParams(high, low int) error {
	if low >= high {
		return errors.Errorf("pool: write params require low < high (got low=%d high=%d)", low, high)
	}
	p := id.Pool()
	p.mu.Lock()
	p.writeHigh, p.writeLow = high, low
	p.mu.Unlock()
	return nil
}

// MustSetWriteParams is SetWriteParams but panics on violation.
func (id PoolID) MustSetWriteParams(high, low int) {
	if err := id.SetWriteParams(high, low); err != nil {
		panic(err)
	}
}

// SetSpawnFn installs the task spawner for this single pool. Passing nil
// disables backpressure for this pool.
func (id PoolID) SetSpawnFn(fn SpawnFunc) {
	p := id.Pool()
	if fn == nil {
		p.spawn.Store(nil)
		return
	}
	f := fn
	p.spawn.Store(&f)
}

// SetSpawnFnAll installs the task spawner for all 16 pools.
func SetSpawnFnAll(fn SpawnFunc) {
	for i := PoolID(0); i < NumPools; i++ {
		i.SetSpawnFn(fn)
	}
}
