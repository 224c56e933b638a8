package spooler_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/httpdriver/httpparser"
	liblog "github.com/sabouaram/httpdriver/logger"
	"github.com/sabouaram/httpdriver/reqbuf"
	"github.com/sabouaram/httpdriver/sock"
	"github.com/sabouaram/httpdriver/spooler"
	"github.com/sabouaram/httpdriver/vhost"
)

type fakeDispatcher struct {
	mu      sync.Mutex
	ready   []*sock.Sock
	badHdr  []*sock.Sock
}

func (f *fakeDispatcher) HandleReady(s *sock.Sock, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = append(f.ready, s)
}

func (f *fakeDispatcher) ReleaseBadHeader(s *sock.Sock) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.badHdr = append(f.badHdr, s)
}

var _ = Describe("Spooler", func() {
	It("reads a handed-off socket to completion and hands it to Dispatch", func() {
		body := strings.Repeat("x", 32)
		req := "POST /upload HTTP/1.1\r\nHost: example.com\r\nContent-Length: 32\r\n\r\n" + body
		reader := strings.NewReader(req)

		s := &sock.Sock{
			Fd:  99,
			Buf: &reqbuf.RequestBuffer{Headers: map[string][]string{}},
		}

		recv := func(s *sock.Sock, buf []byte) (int, error) {
			return reader.Read(buf)
		}

		hosts := vhost.New()
		hosts.Insert("example.com", "80", true, &vhost.Binding{Location: "/"})

		dispatch := &fakeDispatcher{}

		sp := spooler.New(64, recv, httpparser.Config{}, hosts, dispatch)
		ctx, cancel := context.WithCancel(context.Background())
		Expect(sp.Start(ctx)).To(Succeed())

		sp.Enqueue(s, time.Now().Add(time.Second))

		Eventually(func() int {
			dispatch.mu.Lock()
			defer dispatch.mu.Unlock()
			return len(dispatch.ready)
		}, time.Second).Should(Equal(1))

		cancel()
		Expect(sp.Stop(context.Background())).To(Succeed())
	})

	It("reports a failed host lookup as a bad header", func() {
		req := "GET / HTTP/1.1\r\nHost: unknown.example\r\n\r\n"
		reader := bytes.NewReader([]byte(req))

		s := &sock.Sock{
			Fd:  100,
			Buf: &reqbuf.RequestBuffer{Headers: map[string][]string{}},
		}

		recv := func(s *sock.Sock, buf []byte) (int, error) {
			return reader.Read(buf)
		}

		hosts := vhost.New()

		dispatch := &fakeDispatcher{}

		sp := spooler.New(64, recv, httpparser.Config{}, hosts, dispatch)
		ctx, cancel := context.WithCancel(context.Background())
		Expect(sp.Start(ctx)).To(Succeed())

		sp.Enqueue(s, time.Now().Add(time.Second))

		Eventually(func() int {
			dispatch.mu.Lock()
			defer dispatch.mu.Unlock()
			return len(dispatch.badHdr)
		}, time.Second).Should(Equal(1))

		cancel()
		Expect(sp.Stop(context.Background())).To(Succeed())
	})

	It("logs a recv error through an injected logger instead of dropping it silently", func() {
		s := &sock.Sock{
			Fd:  101,
			Buf: &reqbuf.RequestBuffer{Headers: map[string][]string{}},
		}

		recvErr := errors.New("boom")
		recv := func(s *sock.Sock, buf []byte) (int, error) {
			return 0, recvErr
		}

		dispatch := &fakeDispatcher{}

		sp := spooler.New(64, recv, httpparser.Config{}, vhost.New(), dispatch)
		log := liblog.New(context.Background())
		sp.SetLogger(func() liblog.Logger { return log })

		ctx, cancel := context.WithCancel(context.Background())
		Expect(sp.Start(ctx)).To(Succeed())

		sp.Enqueue(s, time.Now().Add(time.Second))

		Eventually(func() bool {
			dispatch.mu.Lock()
			defer dispatch.mu.Unlock()
			return len(dispatch.ready) == 0 && len(dispatch.badHdr) == 0
		}, 200*time.Millisecond).Should(BeTrue())

		cancel()
		Expect(sp.Stop(context.Background())).To(Succeed())
	})
})
