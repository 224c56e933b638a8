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

// Package spooler off-loads large-upload read-ahead from the driver loop:
// a SpoolerLoop iterates handed-off sockets the same way the driver's read
// pass does, but on its own thread, then hands READY requests to the same
// Dispatch collaborator.
package spooler

import (
	"context"
	"time"

	"github.com/sabouaram/httpdriver/httpparser"
	liblog "github.com/sabouaram/httpdriver/logger"
	"github.com/sabouaram/httpdriver/runner/startStop"
	"github.com/sabouaram/httpdriver/sock"
	"github.com/sabouaram/httpdriver/vhost"
)

// Recv reads more data for s, matching the driver's plain/TLS recv
// callback shape.
type Recv func(s *sock.Sock, buf []byte) (int, error)

// Dispatcher is the collaborator a READY request is handed to once its
// VHostBinding is resolved — implemented by *driver.Driver.
type Dispatcher interface {
	HandleReady(s *sock.Sock, now time.Time)
	ReleaseBadHeader(s *sock.Sock)
}

// Spooler is one off-thread read-ahead worker.
type Spooler interface {
	// Enqueue hands s to the spooler, to be read to completion (or
	// Dispatch) by deadline.
	Enqueue(s *sock.Sock, deadline time.Time)

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool

	// SetLogger injects the logger.FuncLog this SpoolerLoop reports
	// read-ahead drops through. A nil fn falls back to logger.GetDefault().
	SetLogger(fn liblog.FuncLog)
}

// New builds a Spooler that reads via recv, parses with cfg, resolves
// Host through hosts, and hands READY sockets to dispatch.
func New(bufSize int, recv Recv, cfg httpparser.Config, hosts vhost.Map, dispatch Dispatcher) Spooler {
	sp := &spooler{
		bufSize:  bufSize,
		recv:     recv,
		cfg:      cfg,
		hosts:    hosts,
		dispatch: dispatch,
	}
	sp.run = startStop.New(sp.runLoop, sp.stopLoop)
	return sp
}
