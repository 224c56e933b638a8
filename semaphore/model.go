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

package semaphore

import (
	"context"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/semaphore"
)

type sem struct {
	context.Context

	n   int64
	w   *semaphore.Weighted
	prg *mpb.Progress
}

func newSem(ctx context.Context, n int64, progress bool) *sem {
	s := &sem{
		Context: ctx,
		n:       n,
	}

	if n > 0 {
		s.w = semaphore.NewWeighted(n)
	}

	if progress {
		s.prg = mpb.NewWithContext(ctx)
	}

	return s
}

func (s *sem) NewWorker() error {
	if s.w == nil {
		return nil
	}
	return s.w.Acquire(s.Context, 1)
}

func (s *sem) NewWorkerTry() bool {
	if s.w == nil {
		return true
	}
	return s.w.TryAcquire(1)
}

func (s *sem) DeferWorker() {
	if s.w == nil {
		return
	}
	s.w.Release(1)
}

func (s *sem) WaitAll() error {
	if s.w == nil || s.n <= 0 {
		return nil
	}

	if err := s.w.Acquire(s.Context, s.n); err != nil {
		return err
	}

	s.w.Release(s.n)
	return nil
}

func (s *sem) DeferMain() {
	if s.prg != nil {
		s.prg.Wait()
	}
}

func (s *sem) Weighted() int64 {
	return s.n
}

func (s *sem) BarNumber(name, msg string, total int64, silent bool, opts []mpb.BarOption) Bar {
	b := &bar{sem: s}

	if s.prg != nil && !silent {
		o := []mpb.BarOption{
			mpb.BarFillerClearOnComplete(),
			mpb.PrependDecorators(decor.Name(name)),
			mpb.AppendDecorators(decor.Name(msg)),
		}
		o = append(o, opts...)
		b.bar = s.prg.AddBar(total, o...)
	}

	return b
}

type bar struct {
	sem *sem
	bar *mpb.Bar
}

func (b *bar) NewWorker() error {
	return b.sem.NewWorker()
}

func (b *bar) NewWorkerTry() bool {
	return b.sem.NewWorkerTry()
}

func (b *bar) DeferWorker() {
	if b.bar != nil {
		b.bar.Increment()
	}
	b.sem.DeferWorker()
}
