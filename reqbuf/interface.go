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

// Package reqbuf pools the per-connection parse buffers HttpParser reads
// into and writes request-line/header state onto, so DriverLoop never
// allocates one per request on the hot path.
package reqbuf

// Singleton indexes the fixed array of extracted singleton header values.
type Singleton int

const (
	Authorization Singleton = iota
	ContentLength
	Expect
	Host
	singletonCount
)

// maxPooled is the largest buffer capacity kept on the free list; bigger
// ones are freed instead, so one oversized upload doesn't pin memory for
// every future connection.
const maxPooled = 64 * 1024

// RequestLine holds the parsed first line of an HTTP/1.x request.
type RequestLine struct {
	Method   string
	URL      string
	Host     string
	Port     string
	Query    string
	Fragment string
	Version  string
}

// RequestBuffer is a recyclable per-connection parse buffer: a growable
// byte slice plus the parser's offsets and the request state parsed out of
// it so far. Exactly one of {free pool, Sock} owns a given instance.
type RequestBuffer struct {
	Buf []byte

	// ReadOff is the next byte to parse; WriteOff is the next byte to
	// fill; Avail = WriteOff - ReadOff always holds.
	ReadOff  int
	WriteOff int

	// ContentOff is the offset where the body starts; zero iff headers
	// have not been fully parsed yet.
	ContentOff int

	Length         int
	ContentLength  int
	ExpectedLength int

	// ChunkStartOff != 0 means chunked decoding is active and
	// ContentLength is not trusted.
	ChunkStartOff int
	ChunkWriteOff int

	// SavedChar is the byte overwritten by a NUL terminator during
	// in-place parsing, restored on reset.
	SavedChar byte

	// Leftover carries pipelined bytes past the end of the current
	// request into the next RequestBuffer.
	Leftover []byte

	Line RequestLine

	Headers map[string][]string
	HasAuth bool

	Singletons [singletonCount]string
}

// Avail returns the number of unparsed, already-read bytes.
func (r *RequestBuffer) Avail() int {
	return r.WriteOff - r.ReadOff
}

// Pool recycles RequestBuffer instances across connections.
type Pool interface {
	// Take returns an initialized buffer, recycled or freshly allocated.
	Take() *RequestBuffer
	// Release resets rb. When retain is true the caller keeps rb attached
	// to its Sock (pipelined bytes remain); otherwise rb returns to the
	// free list, unless its backing array exceeds maxPooled, in which
	// case it is dropped instead of pooled.
	Release(rb *RequestBuffer, retain bool)
}

func New() Pool {
	return &pool{}
}
