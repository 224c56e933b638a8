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

package vhost

import "strings"

type hostMap struct {
	entries map[string]*Binding
	def     *Binding
}

func key(host, port string) string {
	if port == "" {
		return host
	}
	return host + ":" + port
}

func (m *hostMap) Insert(host string, port string, isDefault bool, b *Binding) {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))

	m.entries[key(host, port)] = b
	if port != "" {
		// also reachable host-only, for drivers with a single listen port.
		if _, ok := m.entries[host]; !ok {
			m.entries[host] = b
		}
	}

	if isDefault || m.def == nil {
		m.def = b
	}
}

// splitHostPort trims RFC 2976 trailing dot, handles IP-literal brackets
// ("[::1]:8080"), and splits off an explicit port.
func splitHostPort(raw string) (host, port string) {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "[") {
		if end := strings.IndexByte(raw, ']'); end >= 0 {
			host = raw[1:end]
			rest := raw[end+1:]
			if strings.HasPrefix(rest, ":") {
				port = rest[1:]
			}
			return strings.ToLower(strings.TrimSuffix(host, ".")), port
		}
	}

	if idx := strings.LastIndexByte(raw, ':'); idx >= 0 && !strings.Contains(raw[idx+1:], ":") {
		host = raw[:idx]
		port = raw[idx+1:]
	} else {
		host = raw
	}

	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return host, port
}

func (m *hostMap) Lookup(rawHost string, defaultPort string) (*Binding, string, string) {
	host, port := splitHostPort(rawHost)
	if host == "" {
		return nil, "", ""
	}

	if b, ok := m.entries[key(host, port)]; ok {
		return b, host, port
	}

	if port == defaultPort || port == "" {
		if b, ok := m.entries[host]; ok {
			return b, host, port
		}
	}

	return nil, host, port
}

func (m *hostMap) Default() *Binding {
	return m.def
}
