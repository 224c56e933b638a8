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

package errors

import (
	loglvl "github.com/sabouaram/httpdriver/logger/level"
)

// Reason codes for why a Sock was released: the taxonomy every driver,
// spooler and writer loop reports through, independent of the
// construction/validation CodeError ranges each package registers for
// itself. Kept in errors so sock/driver/httpparser/writer can all report
// through the same values without importing each other.
const (
	ReasonClose CodeError = iota + MinPkgDriverReason
	ReasonCloseTimeout
	ReasonReadTimeout
	ReasonWriteTimeout
	ReasonReadError
	ReasonWriteError
	ReasonShutError
	ReasonBadRequest
	ReasonBadHeader
	ReasonTooManyHeaders
	ReasonEntityTooLarge
	ReasonQueueFull
	ReasonURITooLong
	ReasonLineTooLong
)

// HTTPStatus maps a reason code to the status line a direct error reply
// sends; reasons with no direct reply (the connection is simply dropped)
// return 0.
func (c CodeError) HTTPStatus() int {
	switch c {
	case ReasonBadRequest, ReasonBadHeader:
		return 400
	case ReasonTooManyHeaders:
		return 414
	case ReasonEntityTooLarge:
		return 413
	case ReasonQueueFull:
		return 503
	case ReasonURITooLong, ReasonLineTooLong:
		return 414
	default:
		return 0
	}
}

// LogLevel maps a reason code to the level a component should log its
// release at. Close/CloseTimeout are routine lifecycle events and the
// lone ReasonReadTimeout call site is always an idle keep-alive wait, so
// all three log at Debug; a stalled write is a genuine problem worth
// Info even though it shares the "timeout" shape. Everything past that
// is a client or server fault worth Warn, except a saturated worker
// queue, which is Error since it means the server itself is overloaded.
func (c CodeError) LogLevel() loglvl.Level {
	switch c {
	case ReasonClose, ReasonCloseTimeout, ReasonReadTimeout:
		return loglvl.DebugLevel
	case ReasonWriteTimeout:
		return loglvl.InfoLevel
	case ReasonQueueFull:
		return loglvl.ErrorLevel
	case ReasonReadError, ReasonWriteError, ReasonShutError, ReasonBadRequest,
		ReasonBadHeader, ReasonTooManyHeaders, ReasonEntityTooLarge,
		ReasonURITooLong, ReasonLineTooLong:
		return loglvl.WarnLevel
	default:
		return loglvl.InfoLevel
	}
}

func init() {
	RegisterIdFctMessage(ReasonClose, getReasonMessage)
}

func getReasonMessage(code CodeError) string {
	switch code {
	case ReasonClose:
		return "connection closed"
	case ReasonCloseTimeout:
		return "closing connection timed out while lingering"
	case ReasonReadTimeout:
		return "timed out waiting for request data"
	case ReasonWriteTimeout:
		return "timed out waiting to send response data"
	case ReasonReadError:
		return "error reading from connection"
	case ReasonWriteError:
		return "error writing to connection"
	case ReasonShutError:
		return "error shutting down connection"
	case ReasonBadRequest:
		return "malformed request"
	case ReasonBadHeader:
		return "malformed or duplicated header"
	case ReasonTooManyHeaders:
		return "too many headers"
	case ReasonEntityTooLarge:
		return "request entity too large"
	case ReasonQueueFull:
		return "worker queue full"
	case ReasonURITooLong:
		return "request-target too long"
	case ReasonLineTooLong:
		return "header line too long"
	}

	return ""
}
