package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// Picture returns a small deterministic image; different seeds give
// different pixels.
func Picture(seed int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 12, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(x*20 + seed*7),
				G: uint8(y*25 + seed*13),
				B: uint8(seed * 31),
				A: 255,
			})
		}
	}
	return img
}

// PNG encodes Picture(seed). The same seed with a different compression
// level gives different bytes but identical pixels.
func PNG(t *testing.T, seed int, level png.CompressionLevel) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, Picture(seed)); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}
