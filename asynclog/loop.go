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
	"time"

	"github.com/sabouaram/httpdriver/errors"
	"github.com/sabouaram/httpdriver/ioutils/bufferReadCloser"
)

// fdWriter adapts one fd's writeSync retry loop into an io.Writer so a
// run of same-fd tasks can be coalesced through a bufferReadCloser.Buffer
// and flushed with a single underlying write instead of one per task.
type fdWriter struct {
	fn WriteFunc
	fd int
}

func (fw fdWriter) Write(p []byte) (int, error) {
	if err := writeSync(fw.fn, fw.fd, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *writer) stopLoop(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// runLoop is the AsyncLogWriter thread: it sleeps until Write triggers it
// or a short idle tick fires, moves intake onto active, then flushes
// active one task at a time through writeSync. On shutdown it drains both
// lists before returning.
func (w *writer) runLoop(ctx context.Context) error {
	const idleTick = 50 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case <-w.trigger:
		case <-time.After(idleTick):
		}

		w.flush()
	}
}

func (w *writer) flush() {
	w.mu.Lock()
	w.active = append(w.active, w.intake...)
	w.intake = nil
	pending := w.active
	w.active = nil
	w.mu.Unlock()

	w.writeCoalesced(pending)
}

func (w *writer) drain() {
	for {
		w.mu.Lock()
		pending := append(w.active, w.intake...)
		w.active, w.intake = nil, nil
		w.mu.Unlock()

		if len(pending) == 0 {
			return
		}
		w.writeCoalesced(pending)
	}
}

// writeCoalesced flushes pending in fd-contiguous runs: a lone task for an
// fd writes straight through writeSync, but consecutive tasks queued for
// the same fd are appended into one bufferReadCloser.Buffer and flushed
// with a single write, trading one syscall for what would otherwise be
// one per queued log line. A write that still can't place every byte is
// logged rather than silently dropped, since nothing downstream of the
// background thread ever sees the error.
func (w *writer) writeCoalesced(pending []*Task) {
	for i := 0; i < len(pending); {
		fd := pending[i].Fd
		j := i + 1
		for j < len(pending) && pending[j].Fd == fd {
			j++
		}

		if j-i == 1 {
			t := pending[i]
			if err := writeSync(w.writeFn, t.Fd, t.Data[t.nsent:]); err != nil {
				w.logWriteError(fd, err)
			}
			i = j
			continue
		}

		buf := bufferReadCloser.NewBuffer(nil, nil)
		for _, t := range pending[i:j] {
			_, _ = buf.Write(t.Data[t.nsent:])
		}
		if _, err := buf.WriteTo(fdWriter{fn: w.writeFn, fd: fd}); err != nil {
			w.logWriteError(fd, err)
		}
		_ = buf.Close()

		i = j
	}
}

func (w *writer) logWriteError(fd int, err error) {
	w.logger().Entry(errors.ReasonWriteError.LogLevel(), "asynclog write failed").
		FieldAdd("fd", fd).
		ErrorAdd(true, err).
		Log()
}
