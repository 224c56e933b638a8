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

// Package driverctl is the command-line control surface over the driver,
// registry and writer packages: it listens on real TCP sockets using raw
// syscalls (the standard net package does not hand back a poll(2)-ready
// fd the way pollset needs) and exposes driver/writer introspection and
// submission operations as cobra subcommands.
package driverctl

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/sabouaram/httpdriver/ioutils/mapCloser"
	"github.com/sabouaram/httpdriver/sock"
)

// fdCloser adapts a raw fd into an io.Closer for mapCloser's bookkeeping.
type fdCloser int

func (f fdCloser) Close() error { return unix.Close(int(f)) }

// tcpListener implements the plain-TCP half of driver.Callbacks directly
// over golang.org/x/sys/unix, so accepted connections carry a raw fd that
// pollset's poll(2) loop can watch. Every listening fd it opens is also
// registered with a mapCloser.Closer, so Shutdown can guarantee every
// listen socket is released even if a caller's own bookkeeping misses one.
type tcpListener struct {
	slab    sock.Slab
	closers mapCloser.Closer
}

func newTCPListener() *tcpListener {
	return &tcpListener{
		slab:    sock.NewSlab(),
		closers: mapCloser.New(context.Background()),
	}
}

// Shutdown closes every listening fd this tcpListener has opened via
// Listen, regardless of whether the driver core already closed it.
func (l *tcpListener) Shutdown() error {
	return l.closers.Close()
}

// Listen opens a non-blocking, SO_REUSEADDR listening socket bound to
// addr:port.
func (l *tcpListener) Listen(addr string, port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return 0, fmt.Errorf("socket: %w", err)
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return 0, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	sa, err := sockaddrFor(addr, port)
	if err != nil {
		_ = unix.Close(fd)
		return 0, err
	}

	if err = unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return 0, fmt.Errorf("bind %s:%d: %w", addr, port, err)
	}
	if err = unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		return 0, fmt.Errorf("listen %s:%d: %w", addr, port, err)
	}

	l.closers.Add(fdCloser(fd))
	return fd, nil
}

func sockaddrFor(addr string, port int) (unix.Sockaddr, error) {
	if addr == "" || addr == "0.0.0.0" {
		return &unix.SockaddrInet4{Port: port}, nil
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, fmt.Errorf("invalid bind address %q", addr)
	}
	if v4 := ip.To4(); v4 != nil {
		var b [4]byte
		copy(b[:], v4)
		return &unix.SockaddrInet4{Port: port, Addr: b}, nil
	}
	var b [16]byte
	copy(b[:], ip.To16())
	return &unix.SockaddrInet6{Port: port, Addr: b}, nil
}

// Accept accepts one pending connection off fd without blocking, handing
// back a freshly-taken Sock wired to the raw peer fd.
func (l *tcpListener) Accept(fd int) (*sock.Sock, bool, error) {
	nfd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, false, err
	}

	s := l.slab.Take()
	s.Fd = nfd
	s.RemoteAddr = sockaddrString(sa)
	return s, true, nil
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3], a.Port)
	case *unix.SockaddrInet6:
		ip := net.IP(a.Addr[:])
		return "[" + ip.String() + "]:" + strconv.Itoa(a.Port)
	default:
		return ""
	}
}

// Recv reads available bytes off s's fd, mapping EAGAIN/EWOULDBLOCK to a
// no-data-yet (0, nil) and a zero-length read to io.EOF.
func (l *tcpListener) Recv(s *sock.Sock, buf []byte) (int, error) {
	n, err := unix.Read(s.Fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Send writes buf to s's fd, mapping EAGAIN/EWOULDBLOCK to (0, nil).
func (l *tcpListener) Send(s *sock.Sock, buf []byte) (int, error) {
	n, err := unix.Write(s.Fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// SendVec writes a sequence of buffers to s's fd, one unix.Write per
// buffer rather than a true writev(2) — a deliberate simplification over
// hand-built iovecs, acceptable since responses here are a handful of
// segments at most.
func (l *tcpListener) SendVec(s *sock.Sock, bufs [][]byte) (int64, error) {
	var total int64
	for _, b := range bufs {
		for len(b) > 0 {
			n, err := unix.Write(s.Fd, b)
			if err != nil {
				if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
					return total, nil
				}
				return total, err
			}
			if n == 0 {
				return total, io.EOF
			}
			total += int64(n)
			b = b[n:]
		}
	}
	return total, nil
}

// ReadSpool reads len(buf) bytes from fd starting at offset, for the
// writer's spooled-file sources.
func (l *tcpListener) ReadSpool(fd int, offset int64, buf []byte) (int, error) {
	n, err := unix.Pread(fd, buf, offset)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// KeepClose always allows keep-alive; TCP has no protocol-level close
// handshake of its own to perform here.
func (l *tcpListener) KeepClose(s *sock.Sock) (bool, error) {
	return true, nil
}

// Close closes fd.
func (l *tcpListener) Close(fd int) error {
	return unix.Close(fd)
}
