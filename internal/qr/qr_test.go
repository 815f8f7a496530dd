package qr

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadEncode(t *testing.T) {
	p := NewPayload(" DIP301 ", " Jane@X.com", time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC))
	s, err := p.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"DIP301","email":"jane@x.com","issuedAt":"2024-01-05T09:00:00Z"}`, s)

	_, err = Payload{Username: "x"}.Encode()
	assert.Error(t, err)
}

func TestRenderProducesPNG(t *testing.T) {
	b, err := Render(`{"username":"DIP301"}`)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, Size, img.Bounds().Dx())

	_, err = Render("")
	assert.Error(t, err)
}

func TestDataURLRoundTrip(t *testing.T) {
	b, err := Render("hello")
	require.NoError(t, err)

	url := DataURL(b)
	assert.True(t, bytes.HasPrefix([]byte(url), []byte("data:image/png;base64,")))

	back, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, b, back)
}
