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
	"net"
	"strings"

	"github.com/sabouaram/httpdriver/reqbuf"
)

// resolveForwardedFor implements the two X-Forwarded-For strategies.
// "unknown" tokens are always treated as absent,
// regardless of trusted-proxy configuration.
func resolveForwardedFor(rb *reqbuf.RequestBuffer, remote string, cfg Config) string {
	xff := headerValue(rb, "x-forwarded-for")
	if xff == "" {
		return ""
	}

	tokens := strings.Split(xff, ",")
	for i := range tokens {
		tokens[i] = strings.TrimSpace(tokens[i])
	}

	if len(cfg.TrustedProxies) > 0 {
		if !isTrusted(remote, cfg.TrustedProxies) {
			return ""
		}
		for i := len(tokens) - 1; i >= 0; i-- {
			if tok := tokens[i]; acceptToken(tok, cfg) {
				return tok
			}
		}
		return ""
	}

	for _, tok := range tokens {
		if acceptToken(tok, cfg) {
			return tok
		}
	}
	return ""
}

func acceptToken(tok string, cfg Config) bool {
	if tok == "" || strings.EqualFold(tok, "unknown") {
		return false
	}
	ip := net.ParseIP(strings.Trim(tok, "[]"))
	if ip == nil {
		return false
	}
	if cfg.SkipNonPublic && !isPublic(ip) {
		return false
	}
	return true
}

func isTrusted(remote string, trusted []string) bool {
	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}
	for _, t := range trusted {
		if t == host {
			return true
		}
		if _, cidr, err := net.ParseCIDR(t); err == nil {
			if ip := net.ParseIP(host); ip != nil && cidr.Contains(ip) {
				return true
			}
		}
	}
	return false
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast())
}
