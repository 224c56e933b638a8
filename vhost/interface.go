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

// Package vhost normalizes a request's Host header and maps it to the
// virtual-host binding (server, location, TLS context) that should serve
// it — the driver core's HostMap.
package vhost

// TLSContext is the opaque per-vhost security context (TLS library
// integration is an external collaborator). nil means plain HTTP.
type TLSContext any

// Binding is one entry of the host table: a server reference plus an
// optional TLS context and the canonical location string clients see in
// redirects, indexed by lowercase host (with port when non-default).
type Binding struct {
	Server   any
	TLS      TLSContext
	Location string
}

// Map is a Driver's normalized-host → Binding table. Immutable once
// inserted except for on-demand SNI insertion.
type Map interface {
	// Insert registers host (case-insensitive) bound to a port (0 means
	// "any configured port") for binding b. isDefault flags b as the
	// fallback returned when no Host header matches.
	Insert(host string, port string, isDefault bool, b *Binding)

	// Lookup normalizes rawHost (trims a trailing dot per RFC 2976,
	// recognizes IP-literal brackets, splits an explicit port) and
	// returns the matching Binding, trying first the exact host:port,
	// then host alone when port equals defaultPort. Returns (nil, "",
	// "") when nothing matches; callers then fall back to Default().
	Lookup(rawHost string, defaultPort string) (b *Binding, host string, port string)

	// Default returns the fallback Binding, or nil if none was ever
	// inserted with isDefault. Callers are expected to have validated
	// that before serving; an empty table is a startup-time fatal
	// condition, not something Lookup papers over at request time.
	Default() *Binding
}

func New() Map {
	return &hostMap{
		entries: make(map[string]*Binding),
	}
}
