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
	"sort"
	"strconv"
	"strings"

	liberr "github.com/sabouaram/httpdriver/errors"
	"github.com/sabouaram/httpdriver/reqbuf"
	"github.com/sabouaram/httpdriver/sock"
)

// readLine returns the line starting at rb.Buf[from:] terminated by LF
// (a trailing CR is trimmed), the offset just past the LF, and whether a
// terminator was found at all.
func readLine(buf []byte, from int) (line []byte, next int, found bool) {
	idx := -1
	for i := from; i < len(buf); i++ {
		if buf[i] == '\n' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, from, false
	}

	line = buf[from:idx]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, idx + 1, true
}

func parseRequestLine(line string) (rl reqbuf.RequestLine, ok bool) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return rl, false
	}

	rl.Method = parts[0]
	rl.URL = parts[1]
	rl.Version = "0.9"
	if len(parts) == 3 {
		rl.Version = strings.TrimPrefix(parts[2], "HTTP/")
	}

	rl.URL, rl.Query, rl.Fragment = splitRequestTarget(rl.URL)
	return rl, true
}

func parseHeaderLine(line string) (key, val string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(line[:idx]))
	val = strings.TrimSpace(line[idx+1:])
	return key, val, key != ""
}

func isSingleton(key string) bool {
	i := sort.SearchStrings(singletonHeaders, key)
	return i < len(singletonHeaders) && singletonHeaders[i] == key
}

// parseHeaders scans from s.Buf.ReadOff, one line at a time, up to the
// terminating empty line. Returns More if the terminator hasn't arrived
// yet, Err for an unparseable line, duplicate singleton or too many
// headers. A line exceeding cfg.MaxLine never aborts outright: it sets
// REQUESTURITOOLONG (the request line) or LINETOOLONG (any later line) on
// s, disables keep-alive, and is still drained like any other line so the
// request stays framed — the driver surfaces the error once parsing
// reaches Ready.
func parseHeaders(s *sock.Sock, cfg Config) (Result, liberr.CodeError) {
	rb := s.Buf
	pos := rb.ReadOff
	count := 0

	if rb.Line.Method == "" {
		line, next, found := readLine(rb.Buf, pos)
		if !found {
			if cfg.MaxLine > 0 && len(rb.Buf)-pos > cfg.MaxLine {
				s.Flags |= sock.FlagRequestURITooLong
				s.Keep = sock.KeepNo
			}
			return More, 0
		}
		if cfg.MaxLine > 0 && len(line) > cfg.MaxLine {
			s.Flags |= sock.FlagRequestURITooLong
			s.Keep = sock.KeepNo
			rb.ReadOff = next
			rb.ContentOff = next
			return Ready, 0
		}

		rl, ok := parseRequestLine(string(line))
		if !ok {
			return Err, liberr.ReasonBadRequest
		}
		rb.Line = rl
		pos = next
		rb.ReadOff = pos

		if rl.Version == "0.9" {
			rb.ContentOff = pos
			return Ready, 0
		}
	}

	for {
		line, next, found := readLine(rb.Buf, pos)
		if !found {
			if cfg.MaxLine > 0 && len(rb.Buf)-pos > cfg.MaxLine {
				s.Flags |= sock.FlagLineTooLong
				s.Keep = sock.KeepNo
			}
			rb.ReadOff = pos
			return More, 0
		}
		if cfg.MaxLine > 0 && len(line) > cfg.MaxLine {
			s.Flags |= sock.FlagLineTooLong
			s.Keep = sock.KeepNo
			pos = next
			continue
		}

		pos = next

		if len(line) == 0 {
			rb.ReadOff = pos
			rb.ContentOff = pos
			return Ready, 0
		}

		key, val, ok := parseHeaderLine(string(line))
		if !ok {
			return Err, liberr.ReasonBadHeader
		}

		if isSingleton(key) {
			if _, exists := rb.Headers[key]; exists {
				return Err, liberr.ReasonBadRequest
			}
		}

		rb.Headers[key] = append(rb.Headers[key], val)
		count++
		if cfg.MaxHeaders > 0 && count > cfg.MaxHeaders {
			return Err, liberr.ReasonTooManyHeaders
		}

		switch key {
		case "authorization":
			rb.Singletons[reqbuf.Authorization] = val
			rb.HasAuth = true
		case "content-length":
			rb.Singletons[reqbuf.ContentLength] = val
		case "expect":
			rb.Singletons[reqbuf.Expect] = val
		case "host":
			rb.Singletons[reqbuf.Host] = val
		}
	}
}

// resolveBody fills in ContentLength/ExpectedLength and the chunked start
// offset based on the headers just parsed (body length resolution).
func resolveBody(rb *reqbuf.RequestBuffer, cfg Config) (needContinue bool, tooLarge bool, reason liberr.CodeError, ok bool) {
	if cl := rb.Singletons[reqbuf.ContentLength]; cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return false, false, liberr.ReasonBadRequest, false
		}
		rb.ContentLength = n
		rb.Length = n
	} else if te := headerValue(rb, "transfer-encoding"); strings.EqualFold(te, "chunked") {
		rb.ChunkStartOff = rb.ContentOff
		rb.ChunkWriteOff = rb.ContentOff
		if xe := headerValue(rb, "x-expected-entity-length"); xe != "" {
			if n, err := strconv.Atoi(xe); err == nil {
				rb.ExpectedLength = n
			}
		}
	}

	if cfg.MaxInput > 0 && rb.Length > cfg.MaxInput {
		tooLarge = true
		reason = liberr.ReasonEntityTooLarge
	}

	if expect := rb.Singletons[reqbuf.Expect]; strings.EqualFold(expect, "100-continue") {
		if tooLarge {
			return false, true, reason, true
		}
		needContinue = true
	}

	return needContinue, tooLarge, reason, true
}

func headerValue(rb *reqbuf.RequestBuffer, key string) string {
	if v, ok := rb.Headers[key]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

func step(s *sock.Sock, cfg Config) (Result, bool, liberr.CodeError) {
	rb := s.Buf

	if rb.ContentOff == 0 {
		res, reason := parseHeaders(s, cfg)
		if res != Ready {
			return res, false, reason
		}

		s.Flags |= negotiateCompression(rb)

		needContinue, tooLarge, reason, ok := resolveBody(rb, cfg)
		if !ok {
			return Err, false, reason
		}
		if tooLarge {
			s.Flags |= sock.FlagEntityTooLarge
			s.Keep = sock.KeepNo
			if rb.Singletons[reqbuf.Expect] != "" {
				return Err, false, reason
			}
		}
		if needContinue {
			s.Flags |= sock.FlagContinue
		}

		s.ForwardedAddr = resolveForwardedFor(rb, s.RemoteAddr, cfg)

		if rb.ChunkStartOff != 0 {
			return decodeChunked(rb, true)
		}

		if rb.ContentLength == 0 {
			return Ready, needContinue, 0
		}

		if avail := rb.WriteOff - rb.ContentOff; avail >= rb.ContentLength {
			return bodyReady(rb, cfg)
		}

		return More, needContinue, 0
	}

	if rb.ChunkStartOff != 0 {
		return decodeChunked(rb, true)
	}

	if avail := rb.WriteOff - rb.ContentOff; avail >= rb.ContentLength {
		return bodyReady(rb, cfg)
	}

	return More, false, 0
}

// bodyReady applies the body-placement policy once the full body is
// available in the buffer: small bodies stay in memory; bodies over
// maxupload go to a persistent spool file (handled by SpoolerLoop, Spool
// result); everything else would be mmap-backed in a full read path, which
// is sock's concern once the body is complete.
func bodyReady(rb *reqbuf.RequestBuffer, cfg Config) (Result, bool, liberr.CodeError) {
	if cfg.MaxUpload > 0 && rb.Length > cfg.MaxUpload {
		return Spool, false, 0
	}
	if cfg.ReadAhead > 0 && rb.Length > cfg.ReadAhead {
		return Spool, false, 0
	}
	return Ready, false, 0
}
