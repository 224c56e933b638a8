/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

// Package runner holds the small set of helpers every background
// goroutine in this repo's queue/writer/log stack defers to on entry,
// independent of any one of them (startStop, aggregator, the logger
// hooks) so none has to own its own panic-formatting convention.
package runner

import (
	"fmt"
	"os"
	"strings"
)

// RecoveryCaller reports a recovered panic to stderr, tagged with the
// caller-supplied site name. A nil recovered value is a no-op, so every
// call site can sit behind a bare `defer runner.RecoveryCaller(name, recover())`
// without an extra nil check.
func RecoveryCaller(name string, recovered interface{}, extra ...string) {
	if recovered == nil {
		return
	}

	msg := fmt.Sprintf("panic recovered in %s: %v", name, recovered)
	if len(extra) > 0 {
		msg += " (" + strings.Join(extra, ", ") + ")"
	}

	_, _ = fmt.Fprintln(os.Stderr, msg)
}
