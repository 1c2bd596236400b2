package publishing

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

// BuildPaymentURI builds a upi://pay URI for the given payee and amount.
// The note carries the bill link so a scanning wallet app can correlate the
// payment with the published invoice.
func BuildPaymentURI(payeeVPA, payeeName string, amount float64, note string) string {
	v := url.Values{}
	v.Set("pa", payeeVPA)
	v.Set("pn", payeeName)
	v.Set("am", fmt.Sprintf("%.2f", amount))
	v.Set("cu", "INR")
	v.Set("tn", note)
	return "upi://pay?" + v.Encode()
}

// EncodeQR encodes a payment URI as a PNG QR code. This is a pure local
// operation with no network call.
func EncodeQR(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 512)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}
	return png, nil
}
