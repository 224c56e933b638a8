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
	"strings"

	"github.com/sabouaram/httpdriver/reqbuf"
	"github.com/sabouaram/httpdriver/sock"
)

// negotiateCompression sets ZIP_ACCEPTED/BROTLI_ACCEPTED from
// Accept-Encoding, unless a Range header is present — range responses
// must not be re-encoded.
func negotiateCompression(rb *reqbuf.RequestBuffer) sock.Flags {
	var flags sock.Flags

	if headerValue(rb, "range") != "" {
		return 0
	}

	ae := strings.ToLower(headerValue(rb, "accept-encoding"))
	for _, tok := range strings.Split(ae, ",") {
		tok = strings.TrimSpace(tok)
		if idx := strings.IndexByte(tok, ';'); idx >= 0 {
			tok = strings.TrimSpace(tok[:idx])
		}
		switch tok {
		case "gzip", "deflate":
			flags |= sock.FlagZipAccepted
		case "br":
			flags |= sock.FlagBrotliAccepted
		}
	}

	return flags
}
