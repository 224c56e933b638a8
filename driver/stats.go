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

package driver

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats holds one Driver's atomic request counters, surfaced both by
// `driverctl driver stats` and as prometheus collectors.
type Stats struct {
	received int64
	spooled  int64
	partial  int64
	errors   int64

	collector *statsCollector
}

// NewStats builds a Stats and its prometheus collector, labeled by the
// owning driver's name.
func NewStats(name string) *Stats {
	s := &Stats{}
	s.collector = &statsCollector{stats: s, name: name}
	return s
}

func (s *Stats) AddReceived(n int64) { atomic.AddInt64(&s.received, n) }
func (s *Stats) AddSpooled(n int64)  { atomic.AddInt64(&s.spooled, n) }
func (s *Stats) AddPartial(n int64)  { atomic.AddInt64(&s.partial, n) }
func (s *Stats) AddErrors(n int64)   { atomic.AddInt64(&s.errors, n) }

func (s *Stats) Received() int64 { return atomic.LoadInt64(&s.received) }
func (s *Stats) Spooled() int64  { return atomic.LoadInt64(&s.spooled) }
func (s *Stats) Partial() int64  { return atomic.LoadInt64(&s.partial) }
func (s *Stats) Errors() int64   { return atomic.LoadInt64(&s.errors) }

// Collector returns a prometheus.Collector exposing these counters under
// the `httpdriver_` namespace, for registration on a process-wide registry.
func (s *Stats) Collector() prometheus.Collector {
	return s.collector
}

type statsCollector struct {
	stats *Stats
	name  string
}

var (
	statReceivedDesc = prometheus.NewDesc(
		"httpdriver_requests_received_total",
		"Total requests whose headers the driver finished parsing.",
		[]string{"driver"}, nil,
	)
	statSpooledDesc = prometheus.NewDesc(
		"httpdriver_requests_spooled_total",
		"Total requests handed off to a spooler for read-ahead.",
		[]string{"driver"}, nil,
	)
	statPartialDesc = prometheus.NewDesc(
		"httpdriver_requests_partial_total",
		"Total read-list iterations that needed more header data.",
		[]string{"driver"}, nil,
	)
	statErrorsDesc = prometheus.NewDesc(
		"httpdriver_requests_errors_total",
		"Total connections released due to a parse or I/O error.",
		[]string{"driver"}, nil,
	)
)

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- statReceivedDesc
	ch <- statSpooledDesc
	ch <- statPartialDesc
	ch <- statErrorsDesc
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(statReceivedDesc, prometheus.CounterValue, float64(c.stats.Received()), c.name)
	ch <- prometheus.MustNewConstMetric(statSpooledDesc, prometheus.CounterValue, float64(c.stats.Spooled()), c.name)
	ch <- prometheus.MustNewConstMetric(statPartialDesc, prometheus.CounterValue, float64(c.stats.Partial()), c.name)
	ch <- prometheus.MustNewConstMetric(statErrorsDesc, prometheus.CounterValue, float64(c.stats.Errors()), c.name)
}
