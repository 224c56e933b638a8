package driverconfig_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/httpdriver/driverconfig"
)

var _ = Describe("Config", func() {
	It("fills in unset fields from Default on Clone", func() {
		c := driverconfig.Config{Name: "main"}.Clone()

		Expect(c.Name).To(Equal("main"))
		Expect(c.BufSize).To(Equal(driverconfig.Default().BufSize))
		Expect(c.MaxHeaders).To(Equal(driverconfig.Default().MaxHeaders))
	})

	It("preserves explicitly set fields across Clone", func() {
		c := driverconfig.Config{Name: "main", BufSize: 4096, Backlog: 64}.Clone()

		Expect(c.BufSize).To(Equal(4096))
		Expect(c.Backlog).To(Equal(64))
	})

	It("rejects a config with no name", func() {
		err := driverconfig.Config{}.Clone().Validate()
		Expect(err).ToNot(BeNil())
	})

	It("accepts a named config with default tuning", func() {
		err := driverconfig.Config{Name: "main"}.Clone().Validate()
		Expect(err).To(BeNil())
	})

	It("rejects a bogus trusted-proxy entry", func() {
		c := driverconfig.Config{Name: "main", TrustedProxies: []string{"not-an-ip"}}.Clone()
		Expect(c.Validate()).ToNot(BeNil())
	})
})
