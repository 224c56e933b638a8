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

import (
	"strconv"
	"strings"
	"time"

	"github.com/sabouaram/httpdriver/errors"
	"github.com/sabouaram/httpdriver/httpparser"
	"github.com/sabouaram/httpdriver/reqbuf"
	"github.com/sabouaram/httpdriver/sock"
	"github.com/sabouaram/httpdriver/workerpool"
)

// DispatchResult is Dispatch's outcome.
type DispatchResult int

const (
	DispatchOK DispatchResult = iota
	DispatchTimeout
	DispatchError
)

// Dispatch resolves s's VHostBinding and hands it to the worker pool.
// Missing Host on HTTP/1.1 is BADREQUEST; a full pool is QUEUEFULL.
func Dispatch(d *Driver, s *sock.Sock, now time.Time) DispatchResult {
	host := s.Buf.Singletons[reqbuf.Host]
	if host == "" && s.Buf.Line.Version != "0.9" {
		return DispatchError
	}

	rawHost, _ := splitAuthority(host)
	defaultPort := ""
	if d.listener.DefaultPort != 0 {
		defaultPort = strconv.Itoa(d.listener.DefaultPort)
	}

	binding, loc, _ := d.hosts.Lookup(rawHost, defaultPort)
	if binding == nil {
		binding = d.hosts.Default()
	}
	if binding != nil {
		s.VHost = binding
		s.Location = loc
	}

	switch d.pool.Enqueue(s, now.Add(d.cfg.SendWait)) {
	case workerpool.QueueOK:
		return DispatchOK
	case workerpool.QueueTimeout:
		return DispatchTimeout
	default:
		return DispatchError
	}
}

func splitAuthority(host string) (string, string) {
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		return host[:i], host[i+1:]
	}
	return host, ""
}

// handleDispatch runs Dispatch and routes its result:
// OK releases ownership to the worker pool, TIMEOUT parks on the
// wait-list, ERROR sends a direct BADREQUEST or QUEUEFULL reply. A request
// that Step flagged as too-large/too-long while draining it never reaches
// Dispatch at all: it was malformed the moment it finished draining, so it
// gets the matching direct reply instead of a trip to the worker pool. This
// is the single funnel the driver's own read/accept passes and a Spooler's
// off-thread READY both go through, so the check covers either path.
func (d *Driver) handleDispatch(s *sock.Sock, now time.Time) {
	if reason, ok := httpparser.ProblemReason(s); ok {
		d.replyError(s, reason)
		d.release(s, reason, nil)
		return
	}

	switch Dispatch(d, s, now) {
	case DispatchOK:
		// ownership has moved to the worker pool
	case DispatchTimeout:
		d.mu.Lock()
		d.waitList = append(d.waitList, s)
		d.mu.Unlock()
	case DispatchError:
		reason := errors.ReasonBadRequest
		if s.Buf.Singletons[reqbuf.Host] != "" {
			reason = errors.ReasonQueueFull
		}
		d.replyError(s, reason)
		d.release(s, reason, nil)
	}
}

// HandleReady lets a Spooler hand back a request that reached READY during
// off-thread read-ahead; it runs the same dispatch path as the driver's own
// read-list pass.
func (d *Driver) HandleReady(s *sock.Sock, now time.Time) {
	d.handleDispatch(s, now)
}

// ReleaseBadHeader lets a Spooler report a socket that failed host
// resolution or parsing during off-thread read-ahead.
func (d *Driver) ReleaseBadHeader(s *sock.Sock) {
	d.replyError(s, errors.ReasonBadRequest)
	d.release(s, errors.ReasonBadRequest, nil)
}
