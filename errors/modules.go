/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package errors

// Per-package error-code ranges for the connection I/O driver core.
// Each package registers its own getMessage table against a distinct
// base so a raw CodeError value can be traced back to the component
// that raised it without string matching.
const (
	MinPkgPollSet       = 100
	MinPkgReqBuf        = 200
	MinPkgSock          = 300
	MinPkgVHost         = 400
	MinPkgHttpParser    = 500
	MinPkgDriver        = 600
	MinPkgDriverConfig  = 610 // driverconfig package, separate from httpserver's legacy use of MinPkgDriver
	MinPkgDriverReason  = 620 // connection close/timeout/parse reason codes, separate from construction errors
	MinPkgSpooler       = 700
	MinPkgWriter        = 800
	MinPkgAsyncLog      = 900
	MinPkgCertificate   = 1000
	MinPkgIOUtils       = 1100
	MinPkgSemaphore     = 1200
	MinPkgNetwork       = 1300
	MinPkgLogger        = 1400
	MinPkgRunner        = 1500
	MinPkgDriverCtl     = 1600
	MinPkgWorkerPool    = 1700
	MinPkgRegistry      = 1800

	MinAvailable = 2000

	// MIN_AVAILABLE @Deprecated use MinAvailable constant
	MIN_AVAILABLE = MinAvailable
)
