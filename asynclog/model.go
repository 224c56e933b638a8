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

package asynclog

import (
	"context"
	"sync"
	"sync/atomic"

	liblog "github.com/sabouaram/httpdriver/logger"
	"github.com/sabouaram/httpdriver/runner/startStop"
)

type writer struct {
	writeFn   WriteFunc
	enabled   int32
	queueSize int

	mu     sync.Mutex
	intake []*Task
	active []*Task

	trigger chan struct{}

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

func newWriter(writeFn WriteFunc, queueSize int) *writer {
	if queueSize <= 0 {
		queueSize = 256
	}
	w := &writer{
		writeFn:   writeFn,
		enabled:   1,
		queueSize: queueSize,
		trigger:   make(chan struct{}, 1),
	}
	w.run = startStop.New(w.runLoop, w.stopLoop)
	return w
}

func (w *writer) Enable()  { atomic.StoreInt32(&w.enabled, 1) }
func (w *writer) Disable() { atomic.StoreInt32(&w.enabled, 0) }
func (w *writer) Enabled() bool {
	return atomic.LoadInt32(&w.enabled) != 0
}

func (w *writer) Start(ctx context.Context) error { return w.run.Start(ctx) }
func (w *writer) Stop(ctx context.Context) error  { return w.run.Stop(ctx) }
func (w *writer) IsRunning() bool                 { return w.run.IsRunning() }

// Write is synchronous with a bounded partial-write retry when the
// writer is disabled; otherwise it copies the bytes onto the queue and
// signals the background thread. A queue already at capacity falls back
// to a synchronous write rather than blocking the caller or growing
// without bound.
func (w *writer) Write(fd int, data []byte) error {
	if !w.Enabled() {
		return writeSync(w.writeFn, fd, data)
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	w.mu.Lock()
	if len(w.intake)+len(w.active) >= w.queueSize {
		w.mu.Unlock()
		return writeSync(w.writeFn, fd, cp)
	}
	w.intake = append(w.intake, &Task{Fd: fd, Data: cp})
	w.mu.Unlock()

	w.signal()
	return nil
}

func (w *writer) signal() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// writeSync handles a partial write with a bounded retry budget rather
// than looping forever against a fd that never drains.
func writeSync(fn WriteFunc, fd int, data []byte) error {
	const maxAttempts = 8

	nsent := 0
	for attempt := 0; attempt < maxAttempts && nsent < len(data); attempt++ {
		n, err := fn(fd, data[nsent:])
		if err != nil {
			return err
		}
		if n > 0 {
			nsent += n
		}
	}
	if nsent < len(data) {
		return ErrShortWrite
	}
	return nil
}
