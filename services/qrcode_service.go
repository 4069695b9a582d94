// services/qrcode_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// QREncoder matches qrcode.Encode so tests can swap the encoder.
type QREncoder func(content string, level qrcode.RecoveryLevel, size int) ([]byte, error)

// BoardURL is the public scoreboard address of a competition.
func BoardURL(applicationURL, competitionID string) string {
	base := strings.TrimRight(applicationURL, "/")
	if base == "" {
		base = "http://localhost:8080" // Default for local testing
	}
	return fmt.Sprintf("%s/board/%s", base, competitionID)
}

// GenerateQRCode encodes url as a square PNG of size pixels.
func GenerateQRCode(url string, size int, encoder QREncoder) ([]byte, error) {
	if size <= 0 {
		return nil, errors.New("invalid dimensions: size must be positive")
	}
	if encoder == nil {
		encoder = qrcode.Encode
	}
	png, err := encoder(url, qrcode.Medium, size)
	if err != nil {
		return nil, err
	}
	return png, nil
}
