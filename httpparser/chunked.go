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

package httpparser

import (
	"strconv"
	"strings"

	liberr "github.com/sabouaram/httpdriver/errors"
	"github.com/sabouaram/httpdriver/reqbuf"
)

// decodeChunked scans chunk-size lines from rb.ChunkStartOff and, when
// update is true, moves each chunk's payload back over the hex lines
// already consumed (the decoded stream is always no longer than the
// encoded one, so this is always safe in place). A zero-size chunk
// completes the body.
func decodeChunked(rb *reqbuf.RequestBuffer, update bool) (Result, bool, liberr.CodeError) {
	cursor := rb.ChunkStartOff
	write := rb.ChunkWriteOff

	for {
		line, next, found := readLine(rb.Buf, cursor)
		if !found {
			return moreOrReady(rb, write)
		}

		ext := line
		if idx := indexByte(line, ';'); idx >= 0 {
			ext = line[:idx]
		}

		n, err := strconv.ParseInt(strings.TrimSpace(string(ext)), 16, 64)
		if err != nil || n < 0 {
			return Err, false, liberr.ReasonBadRequest
		}

		need := next + int(n) + 2 // chunk data + trailing CRLF
		if rb.WriteOff < need {
			return moreOrReady(rb, write)
		}

		if n == 0 {
			rb.ContentLength = write - rb.ContentOff
			rb.ChunkStartOff = 0
			rb.ReadOff = next
			return Ready, false, 0
		}

		if update {
			copy(rb.Buf[write:write+int(n)], rb.Buf[next:next+int(n)])
		}
		write += int(n)
		cursor = next + int(n) + 2

		rb.ChunkStartOff = cursor
		rb.ChunkWriteOff = write
	}
}

func moreOrReady(rb *reqbuf.RequestBuffer, write int) (Result, bool, liberr.CodeError) {
	if rb.ExpectedLength > 0 && write-rb.ContentOff >= rb.ExpectedLength {
		rb.ContentLength = write - rb.ContentOff
		rb.ChunkStartOff = 0
		return Ready, false, 0
	}
	return More, false, 0
}

func indexByte(b []byte, c byte) int {
	for i := range b {
		if b[i] == c {
			return i
		}
	}
	return -1
}
