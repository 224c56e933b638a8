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

package spooler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sabouaram/httpdriver/errors"
	"github.com/sabouaram/httpdriver/httpparser"
	liblog "github.com/sabouaram/httpdriver/logger"
	"github.com/sabouaram/httpdriver/reqbuf"
	"github.com/sabouaram/httpdriver/runner/startStop"
	"github.com/sabouaram/httpdriver/sock"
	"github.com/sabouaram/httpdriver/vhost"
)

type spooler struct {
	bufSize  int
	recv     Recv
	cfg      httpparser.Config
	hosts    vhost.Map
	dispatch Dispatcher

	mu     sync.Mutex
	intake []entry
	active []entry

	log liblog.FuncLog
	run startStop.StartStop
}

func (sp *spooler) SetLogger(fn liblog.FuncLog) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.log = fn
}

func (sp *spooler) logger() liblog.Logger {
	sp.mu.Lock()
	fn := sp.log
	sp.mu.Unlock()

	if fn == nil {
		return liblog.GetDefault()
	}
	if l := fn(); l != nil {
		return l
	}
	return liblog.GetDefault()
}

type entry struct {
	s        *sock.Sock
	deadline time.Time
}

func (sp *spooler) Enqueue(s *sock.Sock, deadline time.Time) {
	sp.mu.Lock()
	sp.intake = append(sp.intake, entry{s: s, deadline: deadline})
	sp.mu.Unlock()
}

func (sp *spooler) Start(ctx context.Context) error { return sp.run.Start(ctx) }
func (sp *spooler) Stop(ctx context.Context) error  { return sp.run.Stop(ctx) }
func (sp *spooler) IsRunning() bool                 { return sp.run.IsRunning() }

func (sp *spooler) stopLoop(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// runLoop mirrors the driver's close-list/read-list pass shape, but only
// over sockets handed off for read-ahead.
func (sp *spooler) runLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		sp.mu.Lock()
		sp.active = append(sp.active, sp.intake...)
		sp.intake = nil
		work := sp.active
		sp.active = nil
		sp.mu.Unlock()

		if len(work) == 0 {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		now := time.Now()
		var kept []entry
		for _, e := range work {
			if now.After(e.deadline) {
				sp.logger().Entry(errors.ReasonReadTimeout.LogLevel(), "spooler read-ahead deadline expired").
					FieldAdd("remote", e.s.RemoteAddr).
					Log()
				continue
			}

			buf := make([]byte, sp.bufSize)
			n, err := sp.recv(e.s, buf)
			if err != nil {
				sp.logger().Entry(errors.ReasonReadError.LogLevel(), "spooler recv error").
					FieldAdd("remote", e.s.RemoteAddr).
					ErrorAdd(true, err).
					Log()
				continue
			}
			if n > 0 {
				e.s.Buf.Buf = append(e.s.Buf.Buf, buf[:n]...)
				e.s.Buf.WriteOff += n
			}

			res, _, _ := httpparser.Step(e.s, sp.cfg)
			switch res {
			case httpparser.Ready:
				host := e.s.Buf.Singletons[reqbuf.Host]
				rawHost, _ := splitAuthority(host)
				binding, loc, _ := sp.hosts.Lookup(rawHost, "")
				if binding == nil {
					binding = sp.hosts.Default()
				}
				if binding == nil {
					sp.dispatch.ReleaseBadHeader(e.s)
					continue
				}
				e.s.VHost = binding
				e.s.Location = loc
				sp.dispatch.HandleReady(e.s, now)
			case httpparser.More, httpparser.Spool:
				kept = append(kept, e)
			default:
				sp.dispatch.ReleaseBadHeader(e.s)
			}
		}

		sp.mu.Lock()
		sp.active = append(sp.active, kept...)
		sp.mu.Unlock()
	}
}

func splitAuthority(host string) (string, string) {
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		return host[:i], host[i+1:]
	}
	return host, ""
}
