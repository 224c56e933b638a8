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

package workerpool

import (
	"sync/atomic"
	"time"

	"github.com/sabouaram/httpdriver/sock"
)

type inlinePool struct {
	handle func(s *sock.Sock)
	rate   int64
}

func (p *inlinePool) Enqueue(s *sock.Sock, _ time.Time) QueueResult {
	if p.handle != nil {
		p.handle(s)
	}
	return QueueOK
}

func (p *inlinePool) AddBytesSent(_ *sock.Sock, n int64) {
	atomic.AddInt64(&p.rate, n)
}

func (p *inlinePool) AllocateThreadSlot() bool {
	return true
}

func (p *inlinePool) TotalRate() int64 {
	return atomic.LoadInt64(&p.rate)
}

func (p *inlinePool) EnsureRunning() {}
