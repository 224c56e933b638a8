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

package sock

import (
	"os"
	"sync"
	"time"

	liberr "github.com/sabouaram/httpdriver/errors"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

type slab struct {
	mu   sync.Mutex
	free []*Sock
}

func (sl *slab) Take() *Sock {
	sl.mu.Lock()
	n := len(sl.free)
	if n > 0 {
		s := sl.free[n-1]
		sl.free = sl.free[:n-1]
		sl.mu.Unlock()

		s.ID = uuid.New()
		s.AcceptTime = time.Now()
		return s
	}
	sl.mu.Unlock()

	return &Sock{
		ID:         uuid.New(),
		Fd:         -1,
		PollIndex:  -1,
		AcceptTime: time.Now(),
	}
}

func (sl *slab) Release(s *Sock, closer Closer, reason liberr.CodeError, cause error) liberr.CodeError {
	if s == nil {
		return reason
	}

	if !s.Flags.Has(FlagClosed) && s.Fd >= 0 && closer != nil {
		_ = closer.Close(s.Fd)
	}

	if s.MMap != nil {
		_ = unix.Munmap(s.MMap)
		s.MMap = nil
	}

	if s.TempPath != "" {
		_ = os.Remove(s.TempPath)
	}

	s.Flags |= FlagClosed
	s.reset()

	sl.mu.Lock()
	sl.free = append(sl.free, s)
	sl.mu.Unlock()

	return reason
}
