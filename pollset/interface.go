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

// Package pollset implements the dynamic fd array a DriverLoop/WriterLoop
// iteration polls in one syscall, tracking the nearest absolute deadline
// across every registered fd so callers can derive one poll timeout.
package pollset

import "time"

// growStep is how many extra slots are reserved each time PollSet.Add grows
// the backing array.
const growStep = 100

// PollSet is reset and rebuilt once per loop iteration: every fd of
// interest is added back in, then Wait blocks for the nearest deadline.
// Not safe for concurrent use; each DriverLoop/SpoolerLoop/WriterLoop owns
// exactly one.
type PollSet interface {
	// Reset empties the set without shrinking the backing array.
	Reset()

	// Add registers fd for the given event mask, with an optional absolute
	// deadline that narrows Wait's timeout; a zero deadline means "no
	// deadline from this entry". Returns the index to use with In/Out/Hup.
	Add(fd int, events Events, deadline time.Time) int

	// Wait polls every registered fd, blocking at most until the nearest
	// deadline (or 10s, whichever is sooner). Returns the number of fds
	// with a non-zero revents, or an error for any failure other than an
	// interrupted syscall (which Wait retries transparently).
	Wait(now time.Time) (int, error)

	// In/Out/Hup report whether index i's revents indicate the condition.
	In(i int) bool
	Out(i int) bool
	Hup(i int) bool

	// Len reports how many entries are currently registered.
	Len() int

	// Free releases the backing array.
	Free()
}

// Events is a bitmask of poll interest, independent of the host's raw
// POLLIN/POLLOUT numeric values.
type Events uint32

const (
	EventIn Events = 1 << iota
	EventOut
)

func New() PollSet {
	return &pollSet{}
}
