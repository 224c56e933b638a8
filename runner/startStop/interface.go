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

// Package startStop provides a generic async start/stop/restart lifecycle
// runner around a pair of user functions, used by every long-running loop
// in the driver core (DriverLoop, SpoolerLoop, WriterLoop, AsyncLogWriter).
package startStop

import (
	"context"
	"time"
)

// StartFunc runs until ctx is cancelled or it decides to return on its own.
// A non-nil error is retained and surfaced by LastError.
type StartFunc func(ctx context.Context) error

// StopFunc requests the running StartFunc to return, blocking until it has
// (or ctx expires).
type StopFunc func(ctx context.Context) error

// StartStop is a restartable background task with uptime tracking.
type StartStop interface {
	// Start launches the start function in a new goroutine. Calling Start
	// while already running stops the previous run first.
	Start(ctx context.Context) error

	// Stop requests the current run to end and waits for it to do so.
	// Safe to call when not running.
	Stop(ctx context.Context) error

	// Restart is Stop followed by Start.
	Restart(ctx context.Context) error

	// IsRunning reports whether the start function is currently executing.
	IsRunning() bool

	// Uptime is the duration since the current run started, or zero when
	// not running.
	Uptime() time.Duration

	// LastError is the error returned by the most recent completed run.
	LastError() error
}

// New builds a StartStop around the given start/stop function pair. Either
// may be nil; calling Start/Stop on a nil function reports an error rather
// than panicking.
func New(start StartFunc, stop StopFunc) StartStop {
	return &runner{
		start: start,
		stop:  stop,
	}
}
