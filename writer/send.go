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

package writer

import (
	"io"
	"time"
)

// readFromSpool refills a file-backed task's buffer, honoring the task's
// own lock for streaming tasks. A no-op for memory-backed tasks and for
// file tasks that still have unsent buffered bytes.
func (w *writer) readFromSpool(t *Task) error {
	f := t.file
	if f == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if f.bufLen > f.bufOff {
		return nil
	}
	if f.remaining <= 0 {
		return nil
	}

	for len(f.vec) > 0 && f.segRemaining <= 0 {
		f.vecIndex++
		if f.vecIndex >= len(f.vec) {
			return nil
		}
		seg := f.vec[f.vecIndex]
		f.fd = seg.Fd
		f.segOffset = seg.Offset
		f.segRemaining = seg.Length
	}

	toRead := len(f.buf)
	if int64(toRead) > f.remaining {
		toRead = int(f.remaining)
	}
	if len(f.vec) > 0 && int64(toRead) > f.segRemaining {
		toRead = int(f.segRemaining)
	}
	if toRead == 0 {
		return nil
	}

	n, err := w.readSpool(f.fd, f.segOffset, f.buf[:toRead])
	if err != nil {
		return err
	}
	if n <= 0 {
		return io.ErrUnexpectedEOF
	}

	f.bufOff = 0
	f.bufLen = n
	f.segOffset += int64(n)
	f.segRemaining -= int64(n)

	return nil
}

// sendTask flushes whatever is currently pending for t (the full remaining
// memory-source iovec, or the file source's refilled buffer) through the
// loop's Send callback, compacting any partial send and bumping the
// observed rate once enough bytes have gone out.
func (w *writer) sendTask(t *Task, now time.Time) error {
	var bufs [][]byte
	if t.mem != nil {
		bufs = pendingMemoryBufs(t.mem)
	} else if t.file != nil {
		bufs = [][]byte{t.file.buf[t.file.bufOff:t.file.bufLen]}
	}
	if len(bufs) == 0 {
		return nil
	}

	n, err := w.send(t.Sock, bufs)
	if err != nil {
		return err
	}

	t.NSent += n
	if t.NSent > int64(w.bufSize) {
		if elapsed := now.Sub(t.Start).Milliseconds(); elapsed > 0 {
			t.CurrentRate = float64(t.NSent) / float64(elapsed)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.Size -= n
	if t.mem != nil {
		advanceMemory(t.mem, n)
		return nil
	}

	t.file.bufOff += int(n)
	t.file.remaining -= n
	return nil
}

// pendingMemoryBufs returns the still-unsent tail of m's buffer list:
// m.bufs[m.index] from m.offset onward, then every buffer after it.
func pendingMemoryBufs(m *memorySource) [][]byte {
	if m.index >= len(m.bufs) {
		return nil
	}
	out := make([][]byte, 0, len(m.bufs)-m.index)
	out = append(out, m.bufs[m.index][m.offset:])
	out = append(out, m.bufs[m.index+1:]...)
	return out
}

// advanceMemory compacts n sent bytes off the front of m's pending iovec,
// the memory-source equivalent of the file source's bufOff advance.
func advanceMemory(m *memorySource, n int64) {
	for n > 0 && m.index < len(m.bufs) {
		remain := int64(len(m.bufs[m.index]) - m.offset)
		if n < remain {
			m.offset += int(n)
			return
		}
		n -= remain
		m.index++
		m.offset = 0
	}
}
