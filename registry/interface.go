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

// Package registry keeps the set of configured Driver instances a process
// runs, addressed by name, and fans Start/Stop out across all of them
// concurrently. It backs the `driver info`/`names`/`threads`/`stats`
// control-surface commands.
package registry

import (
	"context"
	"time"

	"github.com/sabouaram/httpdriver/driver"
)

// Info is one driver's introspection snapshot, as returned by `driver
// info` and `driver stats`.
type Info struct {
	Name     string
	Running  bool
	Uptime   time.Duration
	Threads  int
	Received int64
	Spooled  int64
	Partial  int64
	Errors   int64
}

// Registry is a named collection of Drivers sharing a process lifecycle.
type Registry interface {
	// Add registers d under its Name; ErrorDuplicateName if that name is
	// already taken.
	Add(d *driver.Driver) error
	// Get looks up a driver by name.
	Get(name string) (*driver.Driver, bool)
	// Names lists every registered driver name, in registration order.
	Names() []string
	// Walk calls fn for each registered driver in registration order,
	// stopping early if fn returns false.
	Walk(fn func(name string, d *driver.Driver) bool)

	// Start launches every registered driver concurrently, returning the
	// first error encountered.
	Start(ctx context.Context) error
	// Stop requests every registered driver to drain and exit
	// concurrently, returning the first error encountered.
	Stop(ctx context.Context) error
	// IsRunning reports whether at least one registered driver is
	// currently running.
	IsRunning() bool

	// Info snapshots every registered driver's introspection counters,
	// in registration order.
	Info() []Info
}

// New builds an empty Registry.
func New() Registry {
	return newRegistry()
}
