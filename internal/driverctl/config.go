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

package driverctl

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sabouaram/httpdriver/certificates"
	"github.com/sabouaram/httpdriver/driver"
	"github.com/sabouaram/httpdriver/driverconfig"
	"github.com/sabouaram/httpdriver/ioutils/mapCloser"
	liblog "github.com/sabouaram/httpdriver/logger"
	loglvl "github.com/sabouaram/httpdriver/logger/level"
	"github.com/sabouaram/httpdriver/registry"
	"github.com/sabouaram/httpdriver/sock"
	"github.com/sabouaram/httpdriver/vhost"
	"github.com/sabouaram/httpdriver/workerpool"
)

// shutdownFunc adapts a func() error into an io.Closer for mapCloser.
type shutdownFunc func() error

func (f shutdownFunc) Close() error { return f() }

// driverSpec is one entry of the `drivers` config array: a driverconfig.Config
// plus the listener bind addresses/ports driverconfig.Config itself doesn't
// carry (those belong to driver.ListenerConfig, built separately).
type driverSpec struct {
	driverconfig.Config `mapstructure:",squash"`

	BindAddrs []string `mapstructure:"bind"`
	Ports     []int    `mapstructure:"ports"`
	Port      int      `mapstructure:"port"`

	VHosts map[string]string `mapstructure:"vhosts"`
}

type fileConfig struct {
	Drivers []driverSpec `mapstructure:"drivers"`

	// MaxOpenFiles, if set, raises the process's open-file soft limit
	// before any driver starts accepting connections. A driver core that
	// keeps one fd per connection plus spool files needs more headroom
	// than most processes' default ulimit -n.
	MaxOpenFiles int `mapstructure:"maxopenfiles"`

	// LogLevel sets the minimal level every driver/writer logs at; empty
	// defaults to logger's own InfoLevel default.
	LogLevel string `mapstructure:"loglevel"`
}

// buildLogger builds the process-wide Logger every built Driver and
// Writer is injected with, at fc.LogLevel (default InfoLevel).
func buildLogger(fc fileConfig) liblog.Logger {
	l := liblog.New(context.Background())
	if fc.LogLevel != "" {
		l.SetLevel(loglvl.Parse(fc.LogLevel))
	}
	return l
}

// loadConfig reads the bound viper instance into a fileConfig; a missing
// `drivers` key is not an error, it simply yields no drivers.
func loadConfig(v *viper.Viper) (fileConfig, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return fileConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return fc, nil
}

// buildRegistry turns a loaded fileConfig into a running-ready Registry,
// wiring each driverSpec to a fresh tcpListener and an empty VHost table
// carrying any configured host redirects. Spoolers are left nil: wiring a
// Spooler requires a Dispatcher (the Driver itself) that does not exist
// until after New returns, a cycle the driver package leaves to its
// caller to break; the CLI's demonstration drivers accept that trade and
// run large uploads straight through the accept pass instead.
// vhostTLS builds a certificates.TLSConfig for a `vhostcertificates` entry
// formatted "keyfile:crtfile". An empty pair means the vhost serves plain
// HTTP and vhostTLS returns (nil, nil).
func vhostTLS(pair string) (certificates.TLSConfig, error) {
	if pair == "" {
		return nil, nil
	}
	parts := strings.SplitN(pair, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected \"keyfile:crtfile\", got %q", pair)
	}

	tc := certificates.New()
	if err := tc.AddCertificatePairFile(parts[0], parts[1]); err != nil {
		return nil, err
	}
	return tc, nil
}

// buildRegistry's second return value closes every listening socket opened
// by the drivers it built, independent of whether Registry.Stop's own
// Driver.Stop call already closed it — belt-and-suspenders cleanup for the
// `serve` command's shutdown path.
func buildRegistry(fc fileConfig) (registry.Registry, mapCloser.Closer, error) {
	reg := registry.New()
	listeners := mapCloser.New(context.Background())
	log := buildLogger(fc)
	logFn := func() liblog.Logger { return log }

	for _, spec := range fc.Drivers {
		hosts := vhost.New()
		first := true
		for host, location := range spec.VHosts {
			b := &vhost.Binding{Location: location}
			if tls, err := vhostTLS(spec.VHostCertificates[host]); err != nil {
				return nil, nil, fmt.Errorf("vhost %q tls: %w", host, err)
			} else if tls != nil {
				b.TLS = tls
			}
			hosts.Insert(host, "", first, b)
			first = false
		}

		listener := newTCPListener()
		listeners.Add(shutdownFunc(listener.Shutdown))
		pool := workerpool.Bounded(context.Background(), int64(spec.Config.Clone().MaxQueueSize), func(s *sock.Sock) {})

		lc := driver.ListenerConfig{
			Protocol:    "tcp",
			ModuleName:  spec.Name,
			BindAddrs:   spec.BindAddrs,
			Ports:       spec.Ports,
			DefaultPort: spec.Port,
			Callbacks: driver.Callbacks{
				Listen:    listener.Listen,
				Accept:    listener.Accept,
				Recv:      listener.Recv,
				Send:      listener.Send,
				KeepClose: listener.KeepClose,
				Close:     listener.Close,
			},
		}

		d, err := driver.New(spec.Config, lc, hosts, pool, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("build driver %q: %w", spec.Name, err)
		}
		d.SetLogger(logFn)
		if err := reg.Add(d); err != nil {
			return nil, nil, err
		}
	}

	return reg, listeners, nil
}
