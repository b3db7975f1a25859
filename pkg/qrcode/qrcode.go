package qrcode

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	MinSize     = 128
	MaxSize     = 1024
)

// CheckInCodes renders session check-in links as QR images. The codes are
// printed or shown on a phone at the venue, so the highest recovery level
// is used.
type CheckInCodes struct {
	baseURL string // örn: "https://app.example.com/sessions/check-in/"
}

func NewCheckInCodes(baseURL string) *CheckInCodes {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &CheckInCodes{baseURL: baseURL}
}

// URL returns the check-in address for code.
func (c *CheckInCodes) URL(code string) string {
	return c.baseURL + url.PathEscape(code)
}

// CheckInPNG returns a PNG QR code for the check-in URL of code. size is
// clamped to [MinSize, MaxSize]; zero means DefaultSize.
func (c *CheckInCodes) CheckInPNG(code string, size int) ([]byte, error) {
	if code == "" {
		return nil, fmt.Errorf("empty check-in code")
	}
	switch {
	case size <= 0:
		size = DefaultSize
	case size < MinSize:
		size = MinSize
	case size > MaxSize:
		size = MaxSize
	}

	png, err := qrcode.Encode(c.URL(code), qrcode.High, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code PNG: %w", err)
	}
	return png, nil
}
