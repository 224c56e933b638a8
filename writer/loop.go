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
	"time"

	"github.com/sabouaram/httpdriver/errors"
	"github.com/sabouaram/httpdriver/pollset"
)

const defaultSendWait = 30 * time.Second

func (w *writer) stopLoop(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// runLoop is the WriterLoop thread: PerPoolRates, a single POLLOUT-gated
// poll over every task that still has bytes to send (or is draining to
// FINISH), then per-task send/requeue/release.
func (w *writer) runLoop(ctx context.Context) error {
	ps := pollset.New()
	defer ps.Free()

	for {
		select {
		case <-ctx.Done():
			w.drainOnShutdown()
			return nil
		default:
		}

		w.iterate(ps)
	}
}

func (w *writer) iterate(ps pollset.PollSet) {
	w.perPoolRates()

	w.mu.Lock()
	active := append(w.active, w.intake...)
	w.intake = nil
	w.active = nil
	w.mu.Unlock()

	now := time.Now()

	ps.Reset()
	idx := make([]int, len(active))
	for i, t := range active {
		if t.Size > 0 || t.Stream == StreamFinish {
			idx[i] = ps.Add(t.Sock.Fd, pollset.EventOut, t.deadline)
		} else {
			idx[i] = -1
		}
	}

	if ps.Len() > 0 {
		_, _ = ps.Wait(now)
	} else {
		// nothing pollable this tick (empty ring, or every active task is
		// an idle stream waiting on its next Append) — avoid busy-spinning.
		time.Sleep(10 * time.Millisecond)
	}

	var kept []*Task
	for i, t := range active {
		if idx[i] < 0 {
			if t.Stream == StreamActive {
				// idle stream task with nothing buffered yet; wait for
				// the next Append without polling its fd.
				kept = append(kept, t)
				continue
			}
			w.complete(t, StatusClose)
			continue
		}

		if ps.Hup(idx[i]) {
			w.complete(t, StatusClose)
			continue
		}

		if !ps.Out(idx[i]) {
			if t.deadline.IsZero() {
				t.deadline = now.Add(defaultSendWait)
			} else if now.After(t.deadline) {
				w.complete(t, StatusCloseTimeout)
				continue
			}
			kept = append(kept, t)
			continue
		}

		if t.limiter != nil && !t.limiter.AllowN(now, w.bufSize) {
			kept = append(kept, t)
			continue
		}

		if err := w.readFromSpool(t); err != nil {
			w.complete(t, StatusReadError)
			continue
		}

		if err := w.sendTask(t, now); err != nil {
			w.complete(t, StatusWriteError)
			continue
		}

		if t.Size <= 0 && t.Stream != StreamActive {
			w.complete(t, StatusClose)
			continue
		}

		kept = append(kept, t)
	}

	w.mu.Lock()
	w.active = append(w.active, kept...)
	w.mu.Unlock()
}

func (w *writer) complete(t *Task, status Status) {
	t.Status = status
	if t.Sock.DriverArg == t {
		t.Sock.DriverArg = nil
	}
	t.release()

	reason := errors.ReasonClose
	switch status {
	case StatusCloseTimeout:
		reason = errors.ReasonWriteTimeout
	case StatusWriteError:
		reason = errors.ReasonWriteError
	case StatusReadError:
		reason = errors.ReasonReadError
	}

	w.logger().Entry(reason.LogLevel(), "writer task complete").
		FieldAdd("pool", t.Pool).
		FieldAdd("status", int(status)).
		FieldAdd("sent", t.NSent).
		Log()

	w.releaser.Release(t.Sock, reason, t.Keep && status == StatusClose)
}

func (w *writer) drainOnShutdown() {
	w.mu.Lock()
	all := append(w.active, w.intake...)
	w.active, w.intake = nil, nil
	w.mu.Unlock()

	for _, t := range all {
		w.complete(t, StatusClose)
	}
}
