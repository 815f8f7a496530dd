// Package qr builds QR credential payloads and renders them as PNG images.
package qr

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// Size is the rendered image edge in pixels.
const Size = 256

const dataURLPrefix = "data:image/png;base64,"

// Payload is the JSON document encoded into a credential QR code.
type Payload struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issuedAt"`
}

// NewPayload stamps a payload for the holder at now.
func NewPayload(username, email string, now time.Time) Payload {
	return Payload{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		IssuedAt: now.UTC().Truncate(time.Millisecond),
	}
}

// Encode returns the payload's JSON text.
func (p Payload) Encode() (string, error) {
	if p.Username == "" || p.Email == "" {
		return "", errors.New("qr: username and email are required")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Render encodes content as a PNG with high error correction, which keeps
// codes readable from printed or partially obscured badges.
func Render(content string) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr: empty content")
	}
	return qrcode.Encode(content, qrcode.High, Size)
}

// DataURL wraps png as a data:image/png;base64 URL.
func DataURL(png []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png)
}
