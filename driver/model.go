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

// Package driver is the connection I/O driver core: one Driver per listener
// module instance owns accept, read-ahead, keep-alive/close lifecycle and
// hands ready requests to Dispatch.
package driver

import (
	"context"
	"sync"
	"time"

	liberr "github.com/sabouaram/httpdriver/errors"
	"github.com/sabouaram/httpdriver/driverconfig"
	"github.com/sabouaram/httpdriver/httpparser"
	liblog "github.com/sabouaram/httpdriver/logger"
	"github.com/sabouaram/httpdriver/network/protocol"
	"github.com/sabouaram/httpdriver/reqbuf"
	"github.com/sabouaram/httpdriver/runner/startStop"
	"github.com/sabouaram/httpdriver/sock"
	"github.com/sabouaram/httpdriver/vhost"
	"github.com/sabouaram/httpdriver/workerpool"
)

// streamProtocols is the set of ListenerConfig.Protocol values this driver
// core's accept/recv/send loop knows how to drive; anything else (datagram
// or raw-IP families parsed by network/protocol) isn't a connection-oriented
// stream and New rejects it instead of accepting a listener it can't drive.
var streamProtocols = map[protocol.NetworkProtocol]bool{
	protocol.NetworkTCP:  true,
	protocol.NetworkTCP4: true,
	protocol.NetworkTCP6: true,
	protocol.NetworkUnix: true,
}

// Spooler is the off-thread read-ahead collaborator a Driver hands large
// uploads to; implemented by the spooler package.
type Spooler interface {
	Enqueue(s *sock.Sock, deadline time.Time)
}

// Driver owns one listener module instance's accept/read/keep-alive/close
// lifecycle.
type Driver struct {
	cfg       driverconfig.Config
	listener  ListenerConfig
	hosts     vhost.Map
	slab      sock.Slab
	bufs      reqbuf.Pool
	pool      workerpool.Pool
	spoolers  []Spooler
	nextSpool int64

	stats *Stats

	mu         sync.Mutex
	listenFDs  []int
	readList   []*sock.Sock
	closeList  []*sock.Sock
	waitList   []*sock.Sock
	closeIntake []closeIntakeEntry

	parserCfg httpparser.Config

	log liblog.FuncLog
	run startStop.StartStop
}

// SetLogger injects the logger.FuncLog this Driver reports releases and
// direct error replies through. A nil fn (the default) falls back to
// logger.GetDefault().
func (d *Driver) SetLogger(fn liblog.FuncLog) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = fn
}

func (d *Driver) logger() liblog.Logger {
	d.mu.Lock()
	fn := d.log
	d.mu.Unlock()

	if fn == nil {
		return liblog.GetDefault()
	}
	if l := fn(); l != nil {
		return l
	}
	return liblog.GetDefault()
}

type closeIntakeEntry struct {
	s    *sock.Sock
	keep bool
}

// New builds a Driver from its configuration, VHost table, worker pool and
// spoolers; cfg is cloned under defaults and validated.
func New(cfg driverconfig.Config, listener ListenerConfig, hosts vhost.Map, pool workerpool.Pool, spoolers []Spooler) (*Driver, liberr.Error) {
	if !streamProtocols[protocol.Parse(listener.Protocol)] {
		return nil, ErrorUnsupportedProtocol.Error(nil)
	}

	c := cfg.Clone()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:      c,
		listener: listener,
		hosts:    hosts,
		slab:     sock.NewSlab(),
		bufs:     reqbuf.New(),
		pool:     pool,
		spoolers: spoolers,
		stats:    NewStats(c.Name),
		parserCfg: httpparser.Config{
			MaxLine:        c.MaxLine,
			MaxHeaders:     c.MaxHeaders,
			MaxInput:       c.MaxInput,
			ReadAhead:      c.ReadAhead,
			MaxUpload:      c.MaxUpload,
			UploadPath:     c.UploadPath,
			TrustedProxies: c.TrustedProxies,
		},
	}
	d.run = startStop.New(d.runLoop, d.stopLoop)

	return d, nil
}

func (d *Driver) Name() string   { return d.cfg.Name }
func (d *Driver) Stats() *Stats  { return d.stats }

// Threads is this driver's configured DriverThreads count, surfaced by
// `driverctl driver threads`.
func (d *Driver) Threads() int { return d.cfg.DriverThreads }

// Start opens the listener module's listen fds and launches DriverLoop.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	for i, addr := range d.listener.BindAddrs {
		port := d.listener.DefaultPort
		if i < len(d.listener.Ports) {
			port = d.listener.Ports[i]
		}
		if d.listener.Callbacks.Listen == nil {
			continue
		}
		fd, err := d.listener.Callbacks.Listen(addr, port)
		if err != nil {
			d.mu.Unlock()
			return err
		}
		d.listenFDs = append(d.listenFDs, fd)
	}
	d.mu.Unlock()

	return d.run.Start(ctx)
}

// Stop requests DriverLoop to drain and exit.
func (d *Driver) Stop(ctx context.Context) error {
	return d.run.Stop(ctx)
}

// IsRunning reports whether DriverLoop is currently executing.
func (d *Driver) IsRunning() bool { return d.run.IsRunning() }

// Uptime is the duration since DriverLoop's current run started.
func (d *Driver) Uptime() time.Duration { return d.run.Uptime() }

// Submit hands an externally-accepted connection to the driver's
// close-intake-equivalent entry path, used by listeners whose Accept
// callback already produced a *sock.Sock outside the accept pass (e.g. a
// connection re-handed back by a SpoolerLoop or WriterLoop).
func (d *Driver) Submit(s *sock.Sock, keep bool) {
	d.mu.Lock()
	d.closeIntake = append(d.closeIntake, closeIntakeEntry{s: s, keep: keep})
	d.mu.Unlock()
}

func (d *Driver) nextSpooler() Spooler {
	if len(d.spoolers) == 0 {
		return nil
	}
	i := d.nextSpool % int64(len(d.spoolers))
	d.nextSpool++
	return d.spoolers[i]
}
