package vhost_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/httpdriver/vhost"
)

var _ = Describe("HostMap", func() {
	var m vhost.Map
	var api, def *vhost.Binding

	BeforeEach(func() {
		m = vhost.New()
		def = &vhost.Binding{Location: "http://default"}
		api = &vhost.Binding{Location: "http://api.example.com"}

		m.Insert("default.example.com", "80", true, def)
		m.Insert("api.example.com", "80", false, api)
	})

	It("matches a plain lowercase host", func() {
		b, host, _ := m.Lookup("api.example.com", "80")
		Expect(b).To(Equal(api))
		Expect(host).To(Equal("api.example.com"))
	})

	It("is case-insensitive and trims an RFC 2976 trailing dot", func() {
		b, _, _ := m.Lookup("API.Example.Com.", "80")
		Expect(b).To(Equal(api))
	})

	It("splits an explicit port from the host header", func() {
		b, host, port := m.Lookup("api.example.com:8080", "80")
		Expect(host).To(Equal("api.example.com"))
		Expect(port).To(Equal("8080"))
		Expect(b).To(BeNil())
	})

	It("recognizes IP-literal brackets", func() {
		m.Insert("::1", "8443", false, api)
		b, host, port := m.Lookup("[::1]:8443", "80")
		Expect(host).To(Equal("::1"))
		Expect(port).To(Equal("8443"))
		Expect(b).To(Equal(api))
	})

	It("falls back to Default when nothing matches", func() {
		b, _, _ := m.Lookup("unknown.example.com", "80")
		Expect(b).To(BeNil())
		Expect(m.Default()).To(Equal(def))
	})
})
