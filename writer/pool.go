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

package writer

import "golang.org/x/time/rate"

// perPoolRates divides each managed pool's configured KB/s ceiling fairly
// across the tasks and WriterLoop threads currently using it.
func (w *writer) perPoolRates() {
	if !w.bandwidth {
		return
	}

	for _, pi := range w.pools {
		pi.CurrentPoolRate = 0
	}
	for _, t := range w.active {
		limit := w.poolLimits[t.Pool]
		if limit <= 0 || t.CurrentRate <= 0 {
			continue
		}
		w.poolInfo(t.Pool).CurrentPoolRate += t.CurrentRate
	}

	for pool, pi := range w.pools {
		limit := w.poolLimits[pool]
		if limit <= 0 {
			continue
		}

		w.rates.report(pool, w.threadSlot, pi.CurrentPoolRate)
		total := w.rates.total(pool)
		threadDelta := float64(limit) - total

		var delta float64
		if pi.CurrentPoolRate == 0 {
			delta = threadDelta
		} else if w.threadCount > 0 {
			delta = threadDelta / float64(w.threadCount)
		}

		dp := delta / 10
		if dp < -50 {
			dp = -50
		}
		pi.DeltaPercentage = dp
	}

	for _, t := range w.active {
		limit := w.poolLimits[t.Pool]
		if limit <= 0 || t.RateLimit <= 0 {
			continue
		}
		if t.CurrentRate*100/float64(t.RateLimit) <= 90 {
			continue
		}

		pi := w.poolInfo(t.Pool)
		newLimit := float64(t.RateLimit) * (1 + pi.DeltaPercentage/100)
		if newLimit < 5 {
			newLimit = 5
		}
		if newLimit > float64(limit) {
			newLimit = float64(limit)
		}
		t.RateLimit = int64(newLimit)
		if t.limiter != nil {
			t.limiter.SetLimit(rate.Limit(t.RateLimit * 1024))
		}
	}
}
