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

// Package asynclog is the process-wide, single-thread non-blocking log
// writer: access and error log lines go through one Writer so a slow disk
// never stalls a DriverLoop, SpoolerLoop or WriterLoop thread.
package asynclog

import (
	"context"
	stderrors "errors"

	liblog "github.com/sabouaram/httpdriver/logger"
)

// ErrShortWrite is returned when a synchronous write could not place all
// of its bytes within the bounded retry budget.
var ErrShortWrite = stderrors.New("asynclog: short write")

// WriteFunc performs one write attempt to fd, the same non-blocking write
// contract the driver's Callbacks.Send uses.
type WriteFunc func(fd int, buf []byte) (int, error)

// Task is one queued write: an owned copy of the caller's bytes plus how
// much of it has gone out so far.
type Task struct {
	Fd    int
	Data  []byte
	nsent int
}

// Writer is the process-wide AsyncLogWriter. Disabled, Write is
// synchronous (bounded-retry partial-write handling); enabled, it copies
// the bytes onto the queue and returns immediately, falling back to a
// synchronous write if the queue is momentarily full.
type Writer interface {
	Enable()
	Disable()
	Enabled() bool

	Write(fd int, data []byte) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool

	// SetLogger injects the logger.FuncLog this Writer reports failed
	// background writes through. A nil fn falls back to logger.GetDefault().
	SetLogger(fn liblog.FuncLog)
}

// New builds a Writer backed by writeFn, queuing up to queueSize pending
// tasks before Write falls back to a synchronous call.
func New(writeFn WriteFunc, queueSize int) Writer {
	return newWriter(writeFn, queueSize)
}
