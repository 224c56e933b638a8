/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
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

// Package semaphore wraps golang.org/x/sync/semaphore with worker-count
// accounting and an optional mpb progress bar, used by the driver core's
// maxqueuesize/acceptsize backpressure gates.
package semaphore

import (
	"context"

	"github.com/vbauerster/mpb/v8"
)

// Bar ties a progress bar to the worker accounting of the semaphore that
// created it: NewWorker acquires a slot, DeferWorker increments the bar by
// one and releases the slot.
type Bar interface {
	NewWorker() error
	NewWorkerTry() bool
	DeferWorker()
}

// Sem bounds the number of concurrent workers to n, optionally rendering
// mpb progress bars for named groups of work.
type Sem interface {
	context.Context

	// NewWorker blocks until a slot is free or the context is done.
	NewWorker() error
	// NewWorkerTry acquires a slot without blocking.
	NewWorkerTry() bool
	// DeferWorker releases a slot acquired by NewWorker/NewWorkerTry.
	DeferWorker()
	// WaitAll blocks until every outstanding slot has been released.
	WaitAll() error
	// DeferMain releases the progress container (if any); always safe to
	// call, including when progress is disabled.
	DeferMain()
	// Weighted returns the configured number of slots.
	Weighted() int64
	// BarNumber registers a named mpb bar of total steps; NewWorker/
	// DeferWorker on the returned Bar share this Sem's slot pool.
	BarNumber(name, msg string, total int64, silent bool, opts []mpb.BarOption) Bar
}

// New builds a Sem bounding concurrency to n (n <= 0 disables the bound and
// every NewWorker call succeeds immediately). When progress is true, bars
// registered via BarNumber render on a shared mpb.Progress container.
func New(ctx context.Context, n int64, progress bool) Sem {
	return newSem(ctx, n, progress)
}
