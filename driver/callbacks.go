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

package driver

import "github.com/sabouaram/httpdriver/sock"

// ListenerOpts is a bitmask of per-listener behavior flags.
type ListenerOpts uint32

const (
	OptAsync ListenerOpts = 1 << iota
	OptNoParse
	OptSSL
	OptSNI
)

// Callbacks is the 5-callback contract a Listener must provide: one
// each for listening, accepting, receiving, sending and for the
// keep-alive-decision-plus-close pair. Plain and TLS listeners provide
// distinct implementations behind the same shape.
type Callbacks struct {
	// Listen opens the listening fd(s) for addr:port.
	Listen func(addr string, port int) (fd int, err error)
	// Accept accepts one connection off fd, non-blocking; returns
	// (0, false, nil) rather than blocking when none is pending.
	Accept func(fd int) (s *sock.Sock, ok bool, err error)
	// Recv reads into buf, returning the usual io.Reader semantics.
	Recv func(s *sock.Sock, buf []byte) (n int, err error)
	// Send writes buf to s's connection.
	Send func(s *sock.Sock, buf []byte) (n int, err error)
	// KeepClose decides whether s may be kept alive given the response
	// just sent, and performs any protocol-specific close handshake when
	// it may not.
	KeepClose func(s *sock.Sock) (keep bool, err error)
	// Close closes the underlying fd; satisfies sock.Closer.
	Close func(fd int) error
}

type callbackCloser struct {
	fn func(fd int) error
}

func (c callbackCloser) Close(fd int) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(fd)
}

// ListenerConfig is the external construction contract for one Listener
// protocol, module name, bind addresses/ports, and behavior opts.
type ListenerConfig struct {
	Protocol    string
	ModuleName  string
	BindAddrs   []string
	Ports       []int
	DefaultPort int
	Opts        ListenerOpts
	Callbacks   Callbacks
}
