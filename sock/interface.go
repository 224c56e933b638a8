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

// Package sock holds per-connection state (Sock) and the per-driver
// SockSlab free-list that recycles it.
package sock

import (
	"time"

	liberr "github.com/sabouaram/httpdriver/errors"
	"github.com/sabouaram/httpdriver/reqbuf"
	"github.com/sabouaram/httpdriver/vhost"

	"github.com/google/uuid"
)

// Flags is a bitmask of per-connection conditions accumulated while
// parsing and serving a request.
type Flags uint32

const (
	FlagEntityTooLarge Flags = 1 << iota
	FlagContinue
	FlagZipAccepted
	FlagBrotliAccepted
	FlagRequestURITooLong
	FlagLineTooLong
	FlagSentViaWriter
	FlagClosed
	FlagStream
)

func (f Flags) Has(o Flags) bool { return f&o != 0 }

// Keep is the tri-state keep-alive decision for a connection: unknown
// until the response is known, then Yes or No.
type Keep int

const (
	KeepUnknown Keep = iota
	KeepYes
	KeepNo
)

// Sock is per-connection state. It is owned, at any instant, by exactly
// one of: a SockSlab free-list, a driver read-list, a driver close-list, a
// spooler queue, a writer queue, or the worker pool.
type Sock struct {
	ID uuid.UUID

	Fd int

	RemoteAddr    string
	ForwardedAddr string

	VHost    *vhost.Binding
	Location string

	AcceptTime time.Time
	Deadline   time.Time
	PollIndex  int

	Buf *reqbuf.RequestBuffer

	// DriverArg is opaque state the owning Driver attaches (e.g. the
	// listener's accept/send/recv callback set); sock never interprets it.
	DriverArg any

	// TempFD/TempPath/MMap hold a spooled body: TempFD > 0 means the body
	// past the headers was written to a temp file; MMap != nil means it
	// is additionally mapped read-only.
	TempFD   int
	TempPath string
	MMap     []byte

	SendErr error
	RecvErr error

	Flags Flags
	Keep  Keep
}

// Reset clears a Sock for reuse; it does not touch Fd/TempFD/MMap, which
// SockSlab.Release closes/unmaps explicitly before the reset.
func (s *Sock) reset() {
	s.ID = uuid.UUID{}
	s.Fd = -1
	s.RemoteAddr = ""
	s.ForwardedAddr = ""
	s.VHost = nil
	s.Location = ""
	s.AcceptTime = time.Time{}
	s.Deadline = time.Time{}
	s.PollIndex = -1
	s.Buf = nil
	s.DriverArg = nil
	s.TempFD = 0
	s.TempPath = ""
	s.MMap = nil
	s.SendErr = nil
	s.RecvErr = nil
	s.Flags = 0
	s.Keep = KeepUnknown
}

// Closer is implemented by the driver's callback set so SockSlab.Release
// can close the underlying fd without sock importing net.
type Closer interface {
	Close(fd int) error
}

// Slab is a per-driver free-list of Sock values.
type Slab interface {
	// Take pops a free Sock or allocates one, stamping a fresh ID and
	// AcceptTime.
	Take() *Sock
	// Release closes fd via closer (if the Sock isn't already Closed),
	// clears any temp file/mmap, maps reason to a CodeError for the
	// caller's logging/stats, and returns the Sock to the free list.
	Release(s *Sock, closer Closer, reason liberr.CodeError, cause error) liberr.CodeError
}

func NewSlab() Slab {
	return &slab{}
}
