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

package reqbuf

import "sync"

const defaultHeaderSlots = 10

type pool struct {
	free sync.Pool
}

func newRequestBuffer() *RequestBuffer {
	return &RequestBuffer{
		Headers: make(map[string][]string, defaultHeaderSlots),
	}
}

func (p *pool) Take() *RequestBuffer {
	if v := p.free.Get(); v != nil {
		rb := v.(*RequestBuffer)
		return rb
	}
	return newRequestBuffer()
}

func (rb *RequestBuffer) reset() {
	rb.ReadOff = 0
	rb.WriteOff = 0
	rb.ContentOff = 0
	rb.Length = 0
	rb.ContentLength = 0
	rb.ExpectedLength = 0
	rb.ChunkStartOff = 0
	rb.ChunkWriteOff = 0
	rb.SavedChar = 0
	rb.Leftover = nil
	rb.Line = RequestLine{}
	rb.HasAuth = false

	for k := range rb.Headers {
		delete(rb.Headers, k)
	}
	for i := range rb.Singletons {
		rb.Singletons[i] = ""
	}
}

func (p *pool) Release(rb *RequestBuffer, retain bool) {
	if rb == nil {
		return
	}

	rb.reset()

	if retain {
		return
	}

	if cap(rb.Buf) > maxPooled {
		rb.Buf = nil
		return
	}

	rb.Buf = rb.Buf[:0]
	p.free.Put(rb)
}
