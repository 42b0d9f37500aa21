package qr

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 200

// PNG encodes userID as a QR code image with high error recovery.
func PNG(userID string, size int) ([]byte, error) {
	if userID == "" {
		return nil, errors.New("empty user id")
	}
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(userID, qrcode.High, size)
}
