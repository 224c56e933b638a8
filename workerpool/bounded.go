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

package workerpool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sabouaram/httpdriver/semaphore"
	"github.com/sabouaram/httpdriver/sock"
)

// boundedPool runs handle on its own goroutine per request, gated by a
// semaphore.Sem so no more than n requests run concurrently. This is the
// maxqueuesize/acceptsize backpressure gate semaphore.Sem's own doc comment
// describes: Enqueue blocks for a free slot until deadline, and reports
// QueueFull once TryAcquire-before-blocking also fails, so the driver can
// send a direct 503 instead of waiting on a saturated pool.
type boundedPool struct {
	sem    semaphore.Sem
	handle func(s *sock.Sock)
	rate   int64
}

// Bounded returns a Pool that runs handle for every enqueued Sock on its
// own goroutine, never running more than n concurrently. n <= 0 disables
// the bound (equivalent to Default).
func Bounded(ctx context.Context, n int64, handle func(s *sock.Sock)) Pool {
	return &boundedPool{
		sem:    semaphore.New(ctx, n, false),
		handle: handle,
	}
}

const pollInterval = time.Millisecond

func (p *boundedPool) Enqueue(s *sock.Sock, deadline time.Time) QueueResult {
	for {
		if p.sem.NewWorkerTry() {
			go p.run(s)
			return QueueOK
		}
		if !time.Now().Before(deadline) {
			return QueueFull
		}
		select {
		case <-p.sem.Done():
			return QueueFull
		case <-time.After(pollInterval):
		}
	}
}

func (p *boundedPool) run(s *sock.Sock) {
	defer p.sem.DeferWorker()
	if p.handle != nil {
		p.handle(s)
	}
}

func (p *boundedPool) AddBytesSent(_ *sock.Sock, n int64) {
	atomic.AddInt64(&p.rate, n)
}

func (p *boundedPool) AllocateThreadSlot() bool {
	return p.sem.NewWorkerTry()
}

func (p *boundedPool) TotalRate() int64 {
	return atomic.LoadInt64(&p.rate)
}

func (p *boundedPool) EnsureRunning() {}
