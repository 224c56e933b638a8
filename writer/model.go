/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package writer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	liblog "github.com/sabouaram/httpdriver/logger"
	"github.com/sabouaram/httpdriver/runner/startStop"
	"github.com/sabouaram/httpdriver/sock"
)

type writer struct {
	bufSize   int
	send      Send
	readSpool ReadSpool
	releaser  Releaser

	threadSlot  int
	threadCount int
	rates       *RateTable
	poolLimits  map[string]int64
	bandwidth   bool

	nextID uint64

	mu     sync.Mutex
	intake []*Task
	active []*Task
	pools  map[string]*PoolInfo

	log liblog.FuncLog
	run startStop.StartStop
}

func (w *writer) SetLogger(fn liblog.FuncLog) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.log = fn
}

func (w *writer) logger() liblog.Logger {
	w.mu.Lock()
	fn := w.log
	w.mu.Unlock()

	if fn == nil {
		return liblog.GetDefault()
	}
	if l := fn(); l != nil {
		return l
	}
	return liblog.GetDefault()
}

// New builds one WriterLoop thread. threadSlot is this thread's index into
// rates' shared per-pool slot table; threadCount is the total number of
// sibling WriterLoop threads sharing that table, used to divide a pool's
// spare bandwidth evenly across PerPoolRates. poolLimits maps a pool
// name to its configured KB/s ceiling; a pool absent from the map (or
// mapped to <= 0) is unmanaged and never rate-limited.
func New(bufSize int, send Send, readSpool ReadSpool, releaser Releaser, threadSlot, threadCount int, rates *RateTable, poolLimits map[string]int64) Writer {
	w := &writer{
		bufSize:     bufSize,
		send:        send,
		readSpool:   readSpool,
		releaser:    releaser,
		threadSlot:  threadSlot,
		threadCount: threadCount,
		rates:       rates,
		poolLimits:  poolLimits,
		bandwidth:   rates != nil && len(poolLimits) > 0,
		pools:       make(map[string]*PoolInfo),
	}
	w.run = startStop.New(w.runLoop, w.stopLoop)
	return w
}

func (w *writer) Start(ctx context.Context) error { return w.run.Start(ctx) }
func (w *writer) Stop(ctx context.Context) error  { return w.run.Stop(ctx) }
func (w *writer) IsRunning() bool                 { return w.run.IsRunning() }

func (w *writer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.intake) + len(w.active)
}

func (w *writer) submit(t *Task) *Task {
	t.ID = atomic.AddUint64(&w.nextID, 1)
	t.Start = time.Now()
	t.Status = StatusActive
	t.refs = 1
	if t.RateLimit > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(t.RateLimit*1024), w.bufSize)
	}

	w.mu.Lock()
	w.intake = append(w.intake, t)
	w.mu.Unlock()
	return t
}

func (w *writer) SubmitMemory(s *sock.Sock, pool string, bufs [][]byte, rateLimit int64, keep bool) *Task {
	var size int64
	for _, b := range bufs {
		size += int64(len(b))
	}
	return w.submit(&Task{
		Sock:      s,
		Pool:      pool,
		Keep:      keep,
		RateLimit: rateLimit,
		Size:      size,
		mem:       &memorySource{bufs: bufs},
	})
}

func (w *writer) SubmitFile(s *sock.Sock, pool string, fd int, size int64, rateLimit int64, keep bool) *Task {
	return w.submit(&Task{
		Sock:      s,
		Pool:      pool,
		Keep:      keep,
		RateLimit: rateLimit,
		Size:      size,
		file:      &fileSource{fd: fd, buf: make([]byte, w.bufSize), remaining: size},
	})
}

func (w *writer) SubmitFileVec(s *sock.Sock, pool string, vec []FileRange, rateLimit int64, keep bool) *Task {
	var size int64
	for _, r := range vec {
		size += r.Length
	}
	f := &fileSource{buf: make([]byte, w.bufSize), vec: vec, remaining: size}
	if len(vec) > 0 {
		f.fd = vec[0].Fd
		f.segOffset = vec[0].Offset
		f.segRemaining = vec[0].Length
	}
	return w.submit(&Task{
		Sock:      s,
		Pool:      pool,
		Keep:      keep,
		RateLimit: rateLimit,
		Size:      size,
		file:      f,
	})
}

// SubmitStream submits a task the connection keeps a back-reference to:
// the returned Task's refcount starts at 1 for the loop's own ownership,
// then Retain is called once more for the Sock's DriverArg back-pointer,
// cleared when the task completes.
func (w *writer) SubmitStream(s *sock.Sock, pool string, fd int, rateLimit int64, keep bool) *Task {
	t := w.submit(&Task{
		Sock:      s,
		Pool:      pool,
		Keep:      keep,
		RateLimit: rateLimit,
		Stream:    StreamActive,
		file:      &fileSource{fd: fd, buf: make([]byte, w.bufSize)},
	})
	t.Retain()
	s.DriverArg = t
	return t
}

// Append extends a streaming Task with more bytes already written to its
// spool file by the owning worker; it must only be called on a Task
// returned by SubmitStream. Safe to call concurrently with the loop
// draining the same task.
func (t *Task) Append(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Size += n
	if t.file != nil {
		t.file.remaining += n
	}
}

// Finish tells the loop no more Append calls are coming: once the
// remaining bytes drain, the task completes instead of waiting forever.
func (t *Task) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Stream = StreamFinish
}

// Retain bumps t's refcount; used for the Sock's back-pointer to a
// streaming task.
func (t *Task) Retain() { atomic.AddInt32(&t.refs, 1) }

// release drops t's refcount, returning true once it reaches zero.
func (t *Task) release() bool { return atomic.AddInt32(&t.refs, -1) == 0 }

func (w *writer) poolInfo(pool string) *PoolInfo {
	pi := w.pools[pool]
	if pi == nil {
		pi = &PoolInfo{ThreadSlot: w.threadSlot}
		w.pools[pool] = pi
	}
	return pi
}

// PoolInfo is a WriterLoop thread's per-pool bandwidth bookkeeping,
// created the first time the thread sees a task belonging to that pool.
type PoolInfo struct {
	ThreadSlot      int
	CurrentPoolRate float64
	DeltaPercentage float64
}
