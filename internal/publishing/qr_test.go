package publishing

import (
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BuildPaymentURI", func() {
	It("uses the upi scheme", func() {
		uri := BuildPaymentURI("shop@upi", "Corner Shop", 240, "https://tiny.example/b1")
		Expect(uri).To(HavePrefix("upi://pay?"))
	})

	It("encodes the payee, amount, currency and note", func() {
		uri := BuildPaymentURI("shop@upi", "Corner Shop", 240, "https://tiny.example/b1")
		v, err := url.ParseQuery(strings.TrimPrefix(uri, "upi://pay?"))
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Get("pa")).To(Equal("shop@upi"))
		Expect(v.Get("pn")).To(Equal("Corner Shop"))
		Expect(v.Get("am")).To(Equal("240.00"))
		Expect(v.Get("cu")).To(Equal("INR"))
		Expect(v.Get("tn")).To(Equal("https://tiny.example/b1"))
	})

	It("formats fractional amounts to two decimals", func() {
		uri := BuildPaymentURI("shop@upi", "Corner Shop", 65.5, "note")
		Expect(uri).To(ContainSubstring("am=65.50"))
	})
})

var _ = Describe("EncodeQR", func() {
	It("produces a PNG image", func() {
		png, err := EncodeQR("upi://pay?pa=shop%40upi")
		Expect(err).NotTo(HaveOccurred())
		Expect(png[:8]).To(Equal([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}))
	})
})
