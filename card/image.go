package card

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/sergeymakinen/go-bmp"
	"golang.org/x/image/webp"
)

// Canonicalize re-encodes image bytes as PNG. PNG input is returned
// unchanged. JPEG, GIF (first frame), BMP and WebP are converted.
func Canonicalize(data []byte) ([]byte, error) {
	if IsPNG(data) {
		return data, nil
	}

	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	var (
		img image.Image
		err error
	)
	switch {
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		img, err = jpeg.Decode(r)
	case bytes.HasPrefix(data, []byte("GIF8")):
		img, err = gif.Decode(r)
	case bytes.HasPrefix(data, []byte("BM")):
		img, err = bmp.Decode(r)
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		img, err = webp.Decode(r)
	default:
		return nil, ErrUnsupportedImage
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}
	return img, nil
}
