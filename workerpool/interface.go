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

// Package workerpool declares the request-worker contract the driver core
// dispatches ready connections into. The pool implementation itself is an
// external collaborator — this package is interfaces only.
package workerpool

import (
	"time"

	"github.com/sabouaram/httpdriver/sock"
)

// QueueResult is Pool.Enqueue's outcome.
type QueueResult int

const (
	QueueOK QueueResult = iota
	QueueTimeout
	QueueFull
)

// Pool is the worker-pool contract: Dispatch enqueues a ready Sock,
// reports bytes sent for rate accounting, and nudges idle worker threads
// awake without blocking the driver thread that calls it.
type Pool interface {
	// Enqueue hands s to a worker, waiting at most deadline for a free
	// slot. QueueFull means the pool is saturated and the caller should
	// send a direct 503 reply.
	Enqueue(s *sock.Sock, deadline time.Time) QueueResult

	// AddBytesSent accounts bytes written back to s's connection toward
	// this pool's rate counters.
	AddBytesSent(s *sock.Sock, n int64)

	// AllocateThreadSlot reserves a worker thread slot, returning false
	// if the pool is at its configured thread limit.
	AllocateThreadSlot() bool

	// TotalRate returns the pool's current aggregate observed send rate,
	// in bytes/sec, for WriterLoop's bandwidth shaper.
	TotalRate() int64

	// EnsureRunning is a no-op-if-already-running nudge woken workers use
	// to pick up newly queued work (grounded on NaviServer's
	// mutex/condvar "ensure running" idiom).
	EnsureRunning()
}

// Default returns a Pool that always enqueues synchronously and never
// reports QueueFull/QueueTimeout — useful for tests and for drivers that
// delegate dispatch to a single in-process handler instead of a real
// worker pool.
func Default(handle func(s *sock.Sock)) Pool {
	return &inlinePool{handle: handle}
}
