// Package fingerprint computes the two identities of a media file: the
// SHA-256 of its bytes and, for decodable still images, a BLAKE3 digest of
// its decoded pixels.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"io"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/zeebo/blake3"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"pixarr-go/internal/pixarr"
)

// contentDomainKey keys the pixel hash so it can never be confused with a
// plain BLAKE3 digest of some other byte stream.
var contentDomainKey = [32]byte{
	'p', 'i', 'x', 'a', 'r', 'r', '.', 'c', 'o', 'n', 't', 'e', 'n', 't', 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// DefaultDecodable lists the extensions the registered decoders understand.
var DefaultDecodable = []string{".jpg", ".jpeg", ".png", ".gif", ".tif", ".tiff", ".webp", ".bmp"}

// DefaultMaxPixels is the largest image New decodes for a content digest.
const DefaultMaxPixels = 100_000_000

// Fingerprinter implements pixarr.Fingerprinter.
type Fingerprinter struct {
	decodable map[string]bool
	maxPixels int64 // 0 means no limit
}

func New() *Fingerprinter {
	return NewWithDecodable(DefaultDecodable, DefaultMaxPixels)
}

// NewWithDecodable limits content digests to the given extensions and to
// images declaring at most maxPixels pixels.
func NewWithDecodable(exts []string, maxPixels int64) *Fingerprinter {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return &Fingerprinter{decodable: set, maxPixels: maxPixels}
}

// Decodable reports whether a content digest is attempted for ext.
func (f *Fingerprinter) Decodable(ext string) bool {
	return f.decodable[strings.ToLower(ext)]
}

// Fingerprint reads r once. The bytes are hashed as they are consumed by the
// decoder, then the rest is drained into the hash. A decode failure only
// leaves Content empty; a read failure is returned.
func (f *Fingerprinter) Fingerprint(r io.Reader, ext string) (pixarr.Fingerprint, error) {
	h := sha256.New()
	tee := io.TeeReader(r, h)

	var fp pixarr.Fingerprint
	if f.Decodable(ext) {
		fp.Content, fp.ContentSkipped = f.content(tee)
	}

	if _, err := io.Copy(io.Discard, tee); err != nil {
		return pixarr.Fingerprint{}, fmt.Errorf("reading: %w", err)
	}
	fp.Binary = hex.EncodeToString(h.Sum(nil))
	return fp, nil
}

// content reads the image header and decodes the pixels only when the
// declared size is within the limit. Header bytes are replayed to the decoder.
func (f *Fingerprinter) content(r io.Reader) (digest, skipped string) {
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return "", ""
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); f.maxPixels > 0 && pixels > f.maxPixels {
		return "", fmt.Sprintf("%dx%d exceeds %d pixels", cfg.Width, cfg.Height, f.maxPixels)
	}

	img, _, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return "", ""
	}
	return ContentDigest(img), ""
}

// BinaryDigest is the lowercase hex SHA-256 of everything in r.
func BinaryDigest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ContentDigest hashes the pixels of img normalized to 8-bit non-premultiplied
// RGBA, prefixed with the dimensions. Two encodings of the same picture agree.
func ContentDigest(img image.Image) string {
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)

	h, err := blake3.NewKeyed(contentDomainKey[:])
	if err != nil {
		// Only possible with a key that is not 32 bytes.
		panic(err)
	}
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[:4], uint32(b.Dx()))
	binary.BigEndian.PutUint32(dims[4:], uint32(b.Dy()))
	_, _ = h.Write(dims[:])
	_, _ = h.Write(nrgba.Pix)
	return hex.EncodeToString(h.Sum(nil))
}

var _ pixarr.Fingerprinter = (*Fingerprinter)(nil)
