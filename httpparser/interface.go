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

// Package httpparser reads request lines and headers out of a
// reqbuf.RequestBuffer, decodes chunked bodies in place, negotiates
// compression and resolves the client address behind a reverse proxy.
package httpparser

import (
	liberr "github.com/sabouaram/httpdriver/errors"
	"github.com/sabouaram/httpdriver/sock"
)

func init() {
	liberr.RegisterIdFctMessage(liberr.CodeError(liberr.MinPkgHttpParser), getMessage)
}

// Result is what a parse step tells its caller to do next.
type Result int

const (
	// Ready means the request line, headers and (if any) body are fully
	// parsed and the request can be dispatched.
	Ready Result = iota
	// More means the caller should keep reading from the connection and
	// call Step again.
	More
	// Spool means the body should be handed to a SpoolerLoop for
	// off-thread read-ahead instead of parsed inline.
	Spool
	// Closed means the peer sent EOF before a full request arrived.
	Closed
	// Err means parsing failed; the accompanying CodeError is one of the
	// shared reason codes (ReasonBadRequest, ReasonTooManyHeaders, ...).
	Err
)

// Config carries the per-driver tuning knobs that bound parsing.
type Config struct {
	MaxLine    int
	MaxHeaders int
	MaxInput   int
	ReadAhead  int
	MaxUpload  int
	UploadPath string

	// TrustedProxies, when non-empty, restricts X-Forwarded-For
	// resolution to skip tokens contributed by trusted hops.
	TrustedProxies []string
	// SkipNonPublic additionally skips private/loopback addresses when
	// scanning X-Forwarded-For.
	SkipNonPublic bool
}

// singletonHeaders is the sorted table HttpParser checks for duplicates
// after headers finish (the singleton header check).
var singletonHeaders = []string{
	"authorization",
	"content-length",
	"content-type",
	"expect",
	"host",
	"if-match",
	"if-modified-since",
	"if-none-match",
	"if-range",
	"if-unmodified-since",
	"origin",
	"upgrade",
	"user-agent",
}

// Step runs one parse iteration against s.Buf's unparsed bytes
// (s.Buf[ReadOff:WriteOff]), setting s.Flags/s.ForwardedAddr as header
// negotiation resolves them. needContinue is true when the caller should
// send "100 Continue" before reading more body.
func Step(s *sock.Sock, cfg Config) (result Result, needContinue bool, reason liberr.CodeError) {
	return step(s, cfg)
}

// ProblemReason reports the direct-reply reason code for a Ready request
// that Step flagged while draining it (entity too large, request-target
// too long, a header line too long), in that priority order. The caller
// replies with the mapped status and releases the Sock instead of
// dispatching it, since the request never stopped being malformed just
// because it finished draining. ok is false for a Ready request with none
// of these flags set.
func ProblemReason(s *sock.Sock) (reason liberr.CodeError, ok bool) {
	switch {
	case s.Flags.Has(sock.FlagEntityTooLarge):
		return liberr.ReasonEntityTooLarge, true
	case s.Flags.Has(sock.FlagRequestURITooLong):
		return liberr.ReasonURITooLong, true
	case s.Flags.Has(sock.FlagLineTooLong):
		return liberr.ReasonLineTooLong, true
	default:
		return 0, false
	}
}

// SplitRequestTarget splits a request-target into path, query and
// fragment, mirroring NaviServer's Ns_ParseUrl separation of URL parsing
// from the request-line scan.
func SplitRequestTarget(url string) (path, query, fragment string) {
	return splitRequestTarget(url)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case liberr.CodeError(liberr.MinPkgHttpParser):
		return "http parser configuration error"
	}
	return ""
}
