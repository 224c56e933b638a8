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

	"github.com/sabouaram/httpdriver/errors"
	"github.com/sabouaram/httpdriver/sock"
)

// sockWriter adapts a Callbacks.Send function into an io.Writer so
// errors.ReturnDirect.WriteStatusLine can target it directly.
type sockWriter struct {
	s    *sock.Sock
	send func(s *sock.Sock, buf []byte) (int, error)
}

func (w sockWriter) Write(p []byte) (int, error) {
	if w.send == nil {
		return 0, nil
	}
	return w.send(w.s, p)
}

// replyError sends the minimal HTTP/1.0 status line for a parse error
// straight to the peer, with Retry-After on a 503 when the worker
// pool's retry window is known.
func (d *Driver) replyError(s *sock.Sock, reason errors.CodeError) {
	code := reason.HTTPStatus()
	if code == 0 || d.listener.Callbacks.Send == nil {
		return
	}

	d.logger().Entry(reason.LogLevel(), "sending direct error reply").
		FieldAdd("status", code).
		FieldAdd("remote", s.RemoteAddr).
		Log()

	var extra map[string]string
	if code == 503 {
		retry := d.cfg.SendWait.Seconds()
		if retry < 1 {
			retry = 1
		}
		extra = map[string]string{"Retry-After": strconv.Itoa(int(retry))}
	}

	ret := &errors.DefaultReturn{}
	_ = ret.WriteStatusLine(sockWriter{s: s, send: d.listener.Callbacks.Send}, code, extra)
}

// replyContinue writes the interim "100 Continue" status line required
// when HttpParser set FlagContinue (Expect: 100-continue satisfiable).
func (d *Driver) replyContinue(s *sock.Sock) {
	if d.listener.Callbacks.Send == nil {
		return
	}
	ret := &errors.DefaultReturn{}
	_ = ret.WriteStatusLine(sockWriter{s: s, send: d.listener.Callbacks.Send}, 100, nil)
}
