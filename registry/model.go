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

package registry

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sabouaram/httpdriver/driver"
	libctx "github.com/sabouaram/httpdriver/context"
)

// registry keeps drivers in a libctx.Config[string] (a sync-map-backed,
// generic key/value store built on the atomic package) rather than a plain
// map: Load/Store/Delete are already safe for concurrent use, so the
// registry's own lock only has to protect insertion order. Walk/WalkLimit
// on the Config aren't used here since callers need order preserved, which
// the map itself doesn't carry.
type registry struct {
	mu      sync.RWMutex
	order   []string
	drivers libctx.Config[string]
}

func newRegistry() *registry {
	return &registry{drivers: libctx.New[string](context.Background())}
}

func (r *registry) Add(d *driver.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := d.Name()
	if _, exists := r.drivers.Load(name); exists {
		return ErrorDuplicateName.Error(nil)
	}
	r.drivers.Store(name, d)
	r.order = append(r.order, name)
	return nil
}

func (r *registry) Get(name string) (*driver.Driver, bool) {
	v, ok := r.drivers.Load(name)
	if !ok {
		return nil, false
	}
	d, ok := v.(*driver.Driver)
	return d, ok
}

func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *registry) Walk(fn func(name string, d *driver.Driver) bool) {
	for _, name := range r.Names() {
		d, ok := r.Get(name)
		if !ok {
			continue
		}
		if !fn(name, d) {
			return
		}
	}
}

// snapshot returns every registered driver in registration order, safe to
// range over without holding the registry lock.
func (r *registry) snapshot() []*driver.Driver {
	r.mu.RLock()
	order := append([]string(nil), r.order...)
	r.mu.RUnlock()

	out := make([]*driver.Driver, 0, len(order))
	for _, name := range order {
		if d, ok := r.Get(name); ok {
			out = append(out, d)
		}
	}
	return out
}

func (r *registry) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range r.snapshot() {
		d := d
		g.Go(func() error { return d.Start(gctx) })
	}
	return g.Wait()
}

func (r *registry) Stop(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range r.snapshot() {
		d := d
		g.Go(func() error { return d.Stop(gctx) })
	}
	return g.Wait()
}

func (r *registry) IsRunning() bool {
	for _, d := range r.snapshot() {
		if d.IsRunning() {
			return true
		}
	}
	return false
}

func (r *registry) Info() []Info {
	drivers := r.snapshot()
	out := make([]Info, 0, len(drivers))
	for _, d := range drivers {
		s := d.Stats()
		out = append(out, Info{
			Name:     d.Name(),
			Running:  d.IsRunning(),
			Uptime:   d.Uptime(),
			Threads:  d.Threads(),
			Received: s.Received(),
			Spooled:  s.Spooled(),
			Partial:  s.Partial(),
			Errors:   s.Errors(),
		})
	}
	return out
}
