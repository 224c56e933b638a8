package httpparser_test

import (
	"github.com/google/go-cmp/cmp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/httpdriver/httpparser"
	"github.com/sabouaram/httpdriver/reqbuf"
	"github.com/sabouaram/httpdriver/sock"
)

func newSock(data string) *sock.Sock {
	s := &sock.Sock{Buf: &reqbuf.RequestBuffer{Headers: map[string][]string{}}}
	s.Buf.Buf = []byte(data)
	s.Buf.WriteOff = len(data)
	return s
}

var _ = Describe("HttpParser", func() {
	It("parses a plain GET with no body as Ready", func() {
		s := newSock("GET /hello?x=1 HTTP/1.1\r\nHost: example.com\r\n\r\n")
		res, needContinue, reason := httpparser.Step(s, httpparser.Config{})

		Expect(reason).To(BeZero())
		Expect(res).To(Equal(httpparser.Ready))
		Expect(needContinue).To(BeFalse())
		Expect(s.Buf.Line.Method).To(Equal("GET"))
		Expect(s.Buf.Line.URL).To(Equal("/hello"))
		Expect(s.Buf.Line.Query).To(Equal("x=1"))
	})

	It("requests more data when the header terminator hasn't arrived", func() {
		s := newSock("GET / HTTP/1.1\r\nHost: example.com\r\n")
		res, _, _ := httpparser.Step(s, httpparser.Config{})
		Expect(res).To(Equal(httpparser.More))
	})

	It("rejects a duplicate singleton header as BadRequest", func() {
		s := newSock("GET / HTTP/1.1\r\nHost: a\r\nHost: b\r\n\r\n")
		res, _, reason := httpparser.Step(s, httpparser.Config{})
		Expect(res).To(Equal(httpparser.Err))
		Expect(reason).ToNot(BeZero())
	})

	It("reads a Content-Length body once fully buffered", func() {
		s := newSock("POST / HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\n\r\nhello")
		res, _, _ := httpparser.Step(s, httpparser.Config{})
		Expect(res).To(Equal(httpparser.Ready))
		Expect(s.Buf.ContentLength).To(Equal(5))
	})

	It("decodes a chunked body in place and completes on the zero chunk", func() {
		s := newSock("POST / HTTP/1.1\r\nHost: a\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n")
		res, _, _ := httpparser.Step(s, httpparser.Config{})
		Expect(res).To(Equal(httpparser.Ready))
		Expect(s.Buf.ContentLength).To(Equal(5))

		body := s.Buf.Buf[s.Buf.ContentOff : s.Buf.ContentOff+s.Buf.ContentLength]
		Expect(string(body)).To(Equal("hello"))
	})

	It("waits for more data mid-chunk", func() {
		s := newSock("POST / HTTP/1.1\r\nHost: a\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhel")
		res, _, _ := httpparser.Step(s, httpparser.Config{})
		Expect(res).To(Equal(httpparser.More))
	})

	It("flags entity-too-large against maxinput and short-circuits when Expect is set", func() {
		s := newSock("POST / HTTP/1.1\r\nHost: a\r\nContent-Length: 100\r\nExpect: 100-continue\r\n\r\n")
		res, _, reason := httpparser.Step(s, httpparser.Config{MaxInput: 10})
		Expect(res).To(Equal(httpparser.Err))
		Expect(reason).ToNot(BeZero())
		Expect(s.Flags.Has(sock.FlagEntityTooLarge)).To(BeTrue())
	})

	It("sets FlagContinue when Expect is satisfiable", func() {
		s := newSock("POST / HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\nExpect: 100-continue\r\n\r\n")
		_, needContinue, _ := httpparser.Step(s, httpparser.Config{MaxInput: 1000})
		Expect(needContinue).To(BeTrue())
		Expect(s.Flags.Has(sock.FlagContinue)).To(BeTrue())
	})

	It("does not set compression flags when a Range header is present", func() {
		s := newSock("GET / HTTP/1.1\r\nHost: a\r\nAccept-Encoding: gzip\r\nRange: bytes=0-10\r\n\r\n")
		httpparser.Step(s, httpparser.Config{})
		Expect(s.Flags.Has(sock.FlagZipAccepted)).To(BeFalse())
	})

	It("splits the request target into path/query/fragment", func() {
		path, query, fragment := httpparser.SplitRequestTarget("/a/b?x=1&y=2#frag")
		Expect(path).To(Equal("/a/b"))
		Expect(query).To(Equal("x=1&y=2"))
		Expect(fragment).To(Equal("frag"))
	})

	It("round-trips request-line parsing (idempotence law)", func() {
		s1 := newSock("GET /a/b?x=1 HTTP/1.1\r\nHost: a\r\n\r\n")
		httpparser.Step(s1, httpparser.Config{})

		s2 := newSock("GET /a/b?x=1 HTTP/1.1\r\nHost: a\r\n\r\n")
		httpparser.Step(s2, httpparser.Config{})

		Expect(cmp.Diff(s1.Buf.Line, s2.Buf.Line)).To(BeEmpty())
	})
})
