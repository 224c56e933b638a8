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

package pollset

import (
	"time"

	"golang.org/x/sys/unix"
)

const maxWait = 10 * time.Second

type pollSet struct {
	fds       []unix.PollFd
	deadlines []time.Time
}

func toRaw(e Events) int16 {
	var r int16
	if e&EventIn != 0 {
		r |= unix.POLLIN
	}
	if e&EventOut != 0 {
		r |= unix.POLLOUT
	}
	return r
}

func (p *pollSet) Reset() {
	p.fds = p.fds[:0]
	p.deadlines = p.deadlines[:0]
}

func (p *pollSet) Add(fd int, events Events, deadline time.Time) int {
	if cap(p.fds) == len(p.fds) {
		grown := make([]unix.PollFd, len(p.fds), len(p.fds)+growStep)
		copy(grown, p.fds)
		p.fds = grown

		grownDl := make([]time.Time, len(p.deadlines), len(p.deadlines)+growStep)
		copy(grownDl, p.deadlines)
		p.deadlines = grownDl
	}

	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: toRaw(events)})
	p.deadlines = append(p.deadlines, deadline)

	return len(p.fds) - 1
}

func (p *pollSet) Len() int {
	return len(p.fds)
}

func (p *pollSet) Wait(now time.Time) (int, error) {
	timeout := maxWait

	for _, dl := range p.deadlines {
		if dl.IsZero() {
			continue
		}
		if d := dl.Sub(now); d < timeout {
			timeout = d
		}
	}
	if timeout < 0 {
		timeout = 0
	}

	ms := int(timeout / time.Millisecond)
	if timeout%time.Millisecond != 0 {
		ms++
	}

	for {
		n, err := unix.Poll(p.fds, ms)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func (p *pollSet) revents(i int) int16 {
	if i < 0 || i >= len(p.fds) {
		return 0
	}
	return p.fds[i].Revents
}

func (p *pollSet) In(i int) bool {
	return p.revents(i)&(unix.POLLIN|unix.POLLPRI) != 0
}

func (p *pollSet) Out(i int) bool {
	return p.revents(i)&unix.POLLOUT != 0
}

func (p *pollSet) Hup(i int) bool {
	return p.revents(i)&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0
}

func (p *pollSet) Free() {
	p.fds = nil
	p.deadlines = nil
}
