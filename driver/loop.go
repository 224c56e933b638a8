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
	"context"
	"time"

	"github.com/sabouaram/httpdriver/errors"
	"github.com/sabouaram/httpdriver/httpparser"
	"github.com/sabouaram/httpdriver/pollset"
	"github.com/sabouaram/httpdriver/sock"
)

const driveStep = 10 * time.Millisecond

// runLoop is DriverLoop's StartFunc: the 9-step main loop, run
// until ctx is cancelled.
func (d *Driver) runLoop(ctx context.Context) error {
	ps := pollset.New()
	defer ps.Free()

	for {
		select {
		case <-ctx.Done():
			d.drainOnShutdown()
			return nil
		default:
		}

		d.iterate(ps)

		if len(d.readList) == 0 && len(d.closeList) == 0 {
			time.Sleep(driveStep)
		}
	}
}

func (d *Driver) stopLoop(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// iterate runs PollSet rebuild/poll followed by the
// close-list, read-list, requeue, accept and close-intake passes (steps
// 4-8).
func (d *Driver) iterate(ps pollset.PollSet) {
	now := time.Now()

	d.mu.Lock()
	closeList := append([]*sock.Sock(nil), d.closeList...)
	readList := append([]*sock.Sock(nil), d.readList...)
	d.mu.Unlock()

	ps.Reset()
	closeIdx := make([]int, len(closeList))
	for i, s := range closeList {
		closeIdx[i] = ps.Add(s.Fd, pollset.EventIn, s.Deadline)
	}
	readIdx := make([]int, len(readList))
	for i, s := range readList {
		readIdx[i] = ps.Add(s.Fd, pollset.EventIn, s.Deadline)
	}

	if ps.Len() > 0 {
		_, _ = ps.Wait(now)
	}

	d.closeListPass(now, closeList, closeIdx, ps)
	d.readListPass(now, readList, readIdx, ps)
	d.requeuePass(now)
	d.acceptPass(now)
	d.closeIntakePass(now)
}

// closeListPass drains sockets awaiting shutdown(WR) confirmation.
func (d *Driver) closeListPass(now time.Time, list []*sock.Sock, idx []int, ps pollset.PollSet) {
	var kept []*sock.Sock
	for i, s := range list {
		if ps.Hup(idx[i]) {
			d.release(s, errors.ReasonClose, nil)
			continue
		}
		if now.After(s.Deadline) {
			d.release(s, errors.ReasonCloseTimeout, nil)
			continue
		}
		if !ps.In(idx[i]) {
			kept = append(kept, s)
			continue
		}

		buf := make([]byte, 1024)
		n, err := d.listener.Callbacks.Recv(s, buf)
		if err != nil || n == 0 {
			d.release(s, errors.ReasonClose, err)
			continue
		}

		kept = append(kept, s)
	}

	d.mu.Lock()
	d.closeList = append(d.closeList, kept...)
	d.mu.Unlock()
}

// readListPass runs HttpParser over every socket with pending read
// interest.
func (d *Driver) readListPass(now time.Time, list []*sock.Sock, idx []int, ps pollset.PollSet) {
	var kept []*sock.Sock
	for i, s := range list {
		if ps.Hup(idx[i]) {
			d.release(s, errors.ReasonClose, nil)
			continue
		}
		if !ps.In(idx[i]) {
			if now.After(s.Deadline) && s.Buf.Leftover == 0 {
				d.release(s, errors.ReasonReadTimeout, nil)
				continue
			}
			kept = append(kept, s)
			continue
		}

		buf := make([]byte, d.cfg.BufSize)
		n, err := d.listener.Callbacks.Recv(s, buf)
		if err != nil {
			d.release(s, errors.ReasonReadError, err)
			continue
		}
		if n > 0 {
			s.Buf.Buf = append(s.Buf.Buf, buf[:n]...)
			s.Buf.WriteOff += n
			d.stats.AddReceived(1)
		}

		res, needContinue, reason := httpparser.Step(s, d.parserCfg)
		switch res {
		case httpparser.Spool:
			d.stats.AddSpooled(1)
			if sp := d.nextSpooler(); sp != nil {
				sp.Enqueue(s, now.Add(d.cfg.RecvWait))
			} else {
				kept = append(kept, s)
			}
		case httpparser.More:
			d.stats.AddPartial(1)
			s.Deadline = now.Add(d.cfg.RecvWait)
			kept = append(kept, s)
		case httpparser.Ready:
			if needContinue {
				d.replyContinue(s)
			}
			d.handleDispatch(s, now)
		case httpparser.Closed:
			d.release(s, errors.ReasonClose, nil)
		case httpparser.Err:
			d.stats.AddErrors(1)
			d.replyError(s, reason)
			d.release(s, reason, nil)
		}
	}

	d.mu.Lock()
	d.readList = append(d.readList, kept...)
	d.mu.Unlock()
}

// requeuePass retries Dispatch for sockets parked on the wait-list,
// reversed to preserve FIFO order across iterations.
func (d *Driver) requeuePass(now time.Time) {
	d.mu.Lock()
	list := d.waitList
	d.waitList = nil
	d.mu.Unlock()

	for i := len(list) - 1; i >= 0; i-- {
		d.handleDispatch(list[i], now)
	}
}

// acceptPass accepts up to acceptsize new connections per listen fd, while
// below maxqueuesize.
func (d *Driver) acceptPass(now time.Time) {
	if d.listener.Callbacks.Accept == nil {
		return
	}

	d.mu.Lock()
	queued := len(d.readList) + len(d.waitList)
	fds := append([]int(nil), d.listenFDs...)
	d.mu.Unlock()

	if queued >= d.cfg.MaxQueueSize {
		return
	}

	for _, fd := range fds {
		for i := 0; i < d.cfg.AcceptSize; i++ {
			s, ok, err := d.listener.Callbacks.Accept(fd)
			if err != nil || !ok {
				break
			}

			s.AcceptTime = now
			s.Deadline = now.Add(d.cfg.RecvWait)
			if s.Buf == nil {
				s.Buf = d.bufs.Take()
			}

			res, needContinue, reason := httpparser.Step(s, d.parserCfg)
			switch res {
			case httpparser.Ready:
				if needContinue {
					d.replyContinue(s)
				}
				d.handleDispatch(s, now)
			case httpparser.More:
				d.mu.Lock()
				d.readList = append(d.readList, s)
				d.mu.Unlock()
			case httpparser.Spool:
				if sp := d.nextSpooler(); sp != nil {
					sp.Enqueue(s, now.Add(d.cfg.RecvWait))
				}
			case httpparser.Err:
				d.replyError(s, reason)
				d.release(s, reason, nil)
			}
		}
	}
}

// closeIntakePass moves sockets handed back by a worker/writer/spooler
// onto the read-list (keep-alive) or close-list.
func (d *Driver) closeIntakePass(now time.Time) {
	d.mu.Lock()
	intake := d.closeIntake
	d.closeIntake = nil
	d.mu.Unlock()

	var toRead, toClose []*sock.Sock
	for _, e := range intake {
		if e.keep {
			e.s.Deadline = now.Add(d.cfg.KeepWait)
			toRead = append(toRead, e.s)
			continue
		}

		if d.listener.Callbacks.KeepClose != nil {
			_, _ = d.listener.Callbacks.KeepClose(e.s)
		}
		e.s.Deadline = now.Add(d.cfg.CloseWait)
		toClose = append(toClose, e.s)
	}

	d.mu.Lock()
	d.readList = append(d.readList, toRead...)
	d.closeList = append(d.closeList, toClose...)
	d.mu.Unlock()
}

// drainOnShutdown closes all listen fds and releases anything still
// queued.
func (d *Driver) drainOnShutdown() {
	d.mu.Lock()
	fds := d.listenFDs
	d.listenFDs = nil
	var all []*sock.Sock
	all = append(all, d.readList...)
	all = append(all, d.closeList...)
	all = append(all, d.waitList...)
	d.readList, d.closeList, d.waitList = nil, nil, nil
	d.mu.Unlock()

	for _, fd := range fds {
		if d.listener.Callbacks.Close != nil {
			_ = d.listener.Callbacks.Close(fd)
		}
	}
	for _, s := range all {
		d.release(s, errors.ReasonClose, nil)
	}
}

func (d *Driver) release(s *sock.Sock, reason errors.CodeError, cause error) {
	d.logger().Entry(reason.LogLevel(), "releasing connection").
		FieldAdd("reason", reason.Message()).
		FieldAdd("remote", s.RemoteAddr).
		ErrorAdd(true, cause).
		Log()

	var closer sock.Closer
	if d.listener.Callbacks.Close != nil {
		closer = callbackCloser{fn: d.listener.Callbacks.Close}
	}
	_ = d.slab.Release(s, closer, reason, cause)
}
