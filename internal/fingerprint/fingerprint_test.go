package fingerprint_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"pixarr-go/internal/fingerprint"
)

func testImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 32), B: 200, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image, level png.CompressionLevel) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestFingerprint_BinaryDigestMatchesSHA256(t *testing.T) {
	data := encodePNG(t, testImage(), png.DefaultCompression)

	fp, err := fingerprint.New().Fingerprint(bytes.NewReader(data), ".png")
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp.Binary != sha256Hex(data) {
		t.Errorf("Binary = %s, want %s", fp.Binary, sha256Hex(data))
	}
	if fp.Content == "" {
		t.Error("Content is empty for a decodable png")
	}
}

func TestFingerprint_SamePixelsDifferentBytes(t *testing.T) {
	img := testImage()
	fast := encodePNG(t, img, png.NoCompression)
	best := encodePNG(t, img, png.BestCompression)
	if bytes.Equal(fast, best) {
		t.Fatal("test setup: encodings are identical")
	}

	f := fingerprint.New()
	a, err := f.Fingerprint(bytes.NewReader(fast), ".png")
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	b, err := f.Fingerprint(bytes.NewReader(best), ".PNG")
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	if a.Binary == b.Binary {
		t.Error("binary digests should differ")
	}
	if a.Content != b.Content {
		t.Errorf("content digests differ: %s vs %s", a.Content, b.Content)
	}
}

func TestFingerprint_DifferentPixels(t *testing.T) {
	other := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	f := fingerprint.New()

	a, _ := f.Fingerprint(bytes.NewReader(encodePNG(t, testImage(), png.DefaultCompression)), ".png")
	b, _ := f.Fingerprint(bytes.NewReader(encodePNG(t, other, png.DefaultCompression)), ".png")
	if a.Content == b.Content {
		t.Error("different pixels produced the same content digest")
	}
}

func TestFingerprint_DimensionsAreHashed(t *testing.T) {
	wide := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	tall := image.NewNRGBA(image.Rect(0, 0, 2, 4))
	if fingerprint.ContentDigest(wide) == fingerprint.ContentDigest(tall) {
		t.Error("same pixel bytes with different shapes collided")
	}
}

func TestFingerprint_NotDecodable(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		ext  string
	}{
		{name: "video extension is never decoded", data: []byte("not a movie"), ext: ".mov"},
		{name: "corrupt image", data: []byte("\x89PNG garbage"), ext: ".png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp, err := fingerprint.New().Fingerprint(bytes.NewReader(tt.data), tt.ext)
			if err != nil {
				t.Fatalf("Fingerprint() error = %v", err)
			}
			if fp.Content != "" {
				t.Errorf("Content = %q, want empty", fp.Content)
			}
			if fp.Binary != sha256Hex(tt.data) {
				t.Errorf("Binary = %s, want %s", fp.Binary, sha256Hex(tt.data))
			}
		})
	}
}

func TestFingerprint_PixelLimit(t *testing.T) {
	data := encodePNG(t, testImage(), png.DefaultCompression) // 16x8

	tests := []struct {
		name        string
		maxPixels   int64
		wantContent bool
	}{
		{name: "over the limit", maxPixels: 100, wantContent: false},
		{name: "exactly at the limit", maxPixels: 128, wantContent: true},
		{name: "no limit", maxPixels: 0, wantContent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fingerprint.NewWithDecodable(fingerprint.DefaultDecodable, tt.maxPixels)
			fp, err := f.Fingerprint(bytes.NewReader(data), ".png")
			if err != nil {
				t.Fatalf("Fingerprint() error = %v", err)
			}
			if fp.Binary != sha256Hex(data) {
				t.Errorf("Binary = %s, want %s", fp.Binary, sha256Hex(data))
			}
			if got := fp.Content != ""; got != tt.wantContent {
				t.Errorf("Content = %q, want present=%v", fp.Content, tt.wantContent)
			}
			if got := fp.ContentSkipped != ""; got == tt.wantContent {
				t.Errorf("ContentSkipped = %q", fp.ContentSkipped)
			}
		})
	}

	t.Run("content matches an unlimited decode", func(t *testing.T) {
		limited, _ := fingerprint.NewWithDecodable(fingerprint.DefaultDecodable, 128).Fingerprint(bytes.NewReader(data), ".png")
		if want := fingerprint.ContentDigest(testImage()); limited.Content != want {
			t.Errorf("Content = %s, want %s", limited.Content, want)
		}
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("device gone") }

func TestFingerprint_ReadError(t *testing.T) {
	if _, err := fingerprint.New().Fingerprint(failingReader{}, ".mov"); err == nil {
		t.Error("Fingerprint() expected error on read failure")
	}
}

func TestBinaryDigest(t *testing.T) {
	got, err := fingerprint.BinaryDigest(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("BinaryDigest() error = %v", err)
	}
	if want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"; got != want {
		t.Errorf("BinaryDigest(empty) = %s, want %s", got, want)
	}
}
