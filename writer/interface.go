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

// Package writer is the asynchronous response sender: one WriterLoop per
// queue drains a ring-buffered set of WriterTask jobs, sending memory or
// file-backed payloads through a poll-gated Send callback while enforcing
// per-pool bandwidth fairness. A worker hands a response off once and never
// touches the Sock again; the loop releases it through a Releaser once every
// byte has gone out (or the task errors out).
package writer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sabouaram/httpdriver/errors"
	liblog "github.com/sabouaram/httpdriver/logger"
	"github.com/sabouaram/httpdriver/sock"
)

// Status is a WriterTask's outcome as observed by the loop; it never
// reflects anything about the response body itself.
type Status int

const (
	StatusActive Status = iota
	StatusClose
	StatusCloseTimeout
	StatusWriteError
	StatusReadError
)

// StreamState distinguishes a task fed once, in full, at submission time
// (None) from one a worker still appends to (Active) and one a worker has
// told to drain and finish (Finish).
type StreamState int

const (
	StreamNone StreamState = iota
	StreamActive
	StreamFinish
)

// Send writes bufs (in order) to s, the same poll-gated, non-blocking
// contract the driver's Callbacks.Send uses, generalized to an iovec so a
// memory-source task with several pending buffers can be flushed in one
// syscall. Implementations should attempt a vectored write (writev/TLS
// record coalescing) where the transport supports it.
type Send func(s *sock.Sock, bufs [][]byte) (int64, error)

// ReadSpool refills buf from a task's file-backed payload at the given
// offset, the same shape httpparser's spool files are written by.
type ReadSpool func(fd int, offset int64, buf []byte) (int, error)

// Releaser hands a Sock back once its WriterTask is done, mirroring the
// driver's close-intake: keep re-arms the connection for another request,
// !keep schedules it for close. reason feeds stats/logging the same
// taxonomy DriverLoop/SpoolerLoop release through.
type Releaser interface {
	Release(s *sock.Sock, reason errors.CodeError, keep bool)
}

// FileRange is one (fd, offset, length) segment of a multi-fd file-vector
// payload (e.g. a cached header block followed by a body file).
type FileRange struct {
	Fd     int
	Offset int64
	Length int64
}

// Writer is one WriterLoop: a thread draining its own intake queue.
type Writer interface {
	// SubmitMemory enqueues an in-memory response. rateLimit is KB/s, 0
	// meaning unlimited.
	SubmitMemory(s *sock.Sock, pool string, bufs [][]byte, rateLimit int64, keep bool) *Task

	// SubmitFile enqueues a single spooled-file response of size bytes
	// starting at offset 0.
	SubmitFile(s *sock.Sock, pool string, fd int, size int64, rateLimit int64, keep bool) *Task

	// SubmitFileVec enqueues a multi-segment file response (e.g. a static
	// header block followed by a separate body file).
	SubmitFileVec(s *sock.Sock, pool string, vec []FileRange, rateLimit int64, keep bool) *Task

	// SubmitStream enqueues a task a worker will keep extending via
	// Append/Finish on the returned Task, e.g. a chunked proxy response
	// being written to its spool file as it arrives upstream.
	SubmitStream(s *sock.Sock, pool string, fd int, rateLimit int64, keep bool) *Task

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool

	// Len reports the number of tasks currently active or queued.
	Len() int

	// SetLogger injects the logger.FuncLog this WriterLoop reports task
	// completions through. A nil fn falls back to logger.GetDefault().
	SetLogger(fn liblog.FuncLog)
}

// RateTable is the pool-rate slot table every WriterLoop thread in a ring
// shares, one slot per thread, so PerPoolRates can see every thread's
// current contribution to a pool's total throughput.
type RateTable struct {
	mu      sync.Mutex
	threads int
	slots   map[string][]float64 // pool -> per-thread currentPoolRate
}

func NewRateTable(threads int) *RateTable {
	return &RateTable{threads: threads, slots: make(map[string][]float64)}
}

func (rt *RateTable) report(pool string, thread int, value float64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	s := rt.slots[pool]
	if s == nil {
		s = make([]float64, rt.threads)
		rt.slots[pool] = s
	}
	if thread < len(s) {
		s[thread] = value
	}
}

func (rt *RateTable) total(pool string) float64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	var total float64
	for _, r := range rt.slots[pool] {
		total += r
	}
	return total
}

// Task is one response in flight on a Writer.
type Task struct {
	ID     uint64
	Sock   *sock.Sock
	Pool   string
	Tag    string
	Keep   bool
	Stream StreamState

	Status Status

	RateLimit   int64 // KB/s, 0 = unlimited
	limiter     *rate.Limiter
	CurrentRate float64

	Start    time.Time
	deadline time.Time
	NSent    int64
	Size     int64

	mem  *memorySource
	file *fileSource

	// mu guards Size/the file source's write cursor against concurrent
	// Append calls from a worker while the loop is mid-send; it is only
	// ever taken for Stream != StreamNone tasks.
	mu sync.Mutex

	refs int32
}

type memorySource struct {
	bufs   [][]byte
	index  int
	offset int
}

type fileSource struct {
	fd        int
	buf       []byte
	bufOff    int
	bufLen    int
	remaining int64 // total bytes left across the whole payload

	vec          []FileRange
	vecIndex     int
	segOffset    int64 // next read offset within the current segment's fd
	segRemaining int64 // bytes left in the current segment
}
