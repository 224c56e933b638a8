/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

package startStop

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type runner struct {
	mu sync.RWMutex

	start StartFunc
	stop  StopFunc

	running bool
	startAt time.Time
	lastErr error

	cnl context.CancelFunc
	done chan struct{}
}

func (r *runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		_ = r.Stop(ctx)
		r.mu.Lock()
	}

	if r.start == nil {
		r.lastErr = fmt.Errorf("startStop: nil start function")
		r.mu.Unlock()
		return r.lastErr
	}

	cctx, cnl := context.WithCancel(ctx)
	done := make(chan struct{})

	r.cnl = cnl
	r.done = done
	r.running = true
	r.startAt = time.Now()
	r.lastErr = nil

	fn := r.start
	r.mu.Unlock()

	go func() {
		defer close(done)

		err := func() (e error) {
			defer func() {
				if p := recover(); p != nil {
					e = fmt.Errorf("startStop: panic in start function: %v", p)
				}
			}()
			return fn(cctx)
		}()

		r.mu.Lock()
		r.running = false
		r.lastErr = err
		r.mu.Unlock()
	}()

	return nil
}

func (r *runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}

	stopFn := r.stop
	cnl := r.cnl
	done := r.done
	r.mu.Unlock()

	var err error
	if stopFn != nil {
		err = stopFn(ctx)
	} else if cnl != nil {
		cnl()
	}

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	}

	if cnl != nil {
		cnl()
	}

	return err
}

func (r *runner) Restart(ctx context.Context) error {
	_ = r.Stop(ctx)
	return r.Start(ctx)
}

func (r *runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *runner) Uptime() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running || r.startAt.IsZero() {
		return 0
	}
	return time.Since(r.startAt)
}

func (r *runner) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}
