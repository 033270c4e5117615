package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
)

// Decode parses PNG or JPEG bytes into a PixelBuffer. Gray images keep
// a single channel so encoded masks round-trip; everything else decodes
// to color.
func Decode(data []byte) (*PixelBuffer, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	if gray, ok := img.(*image.Gray); ok {
		return FromGray(gray), nil
	}
	return FromImage(img), nil
}

// DecodeBase64 parses a base64 PNG/JPEG payload, tolerating a data URL
// prefix the way browser clients send them.
func DecodeBase64(payload string) (*PixelBuffer, error) {
	if i := indexComma(payload); i >= 0 {
		payload = payload[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("imaging: base64: %w", err)
	}
	return Decode(data)
}

// EncodePNG serializes the buffer as PNG bytes. Masks become 8-bit gray,
// color buffers RGBA.
func (p *PixelBuffer) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.ToImage()); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64PNG returns the buffer as a base64 PNG string for JSON
// responses.
func (p *PixelBuffer) EncodeBase64PNG() (string, error) {
	data, err := p.EncodePNG()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func indexComma(s string) int {
	for i := 0; i < len(s) && i < 64; i++ {
		if s[i] == ',' {
			return i
		}
	}
	return -1
}
