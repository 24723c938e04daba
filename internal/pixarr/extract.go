package pixarr

import (
	"context"
	"io"

	"pixarr-go/internal/metadata"
)

// Fingerprint holds both identities of a file. Content is empty when the
// format cannot be decoded to pixels.
type Fingerprint struct {
	Binary  string
	Content string

	// ContentSkipped says why a decodable file got no content digest.
	ContentSkipped string
}

// Fingerprinter computes the identities of a file in a single read.
type Fingerprinter interface {
	Fingerprint(r io.Reader, ext string) (Fingerprint, error)
}

// MetadataExtractor reads embedded metadata. Errors are not fatal to
// screening; they are treated as missing metadata.
type MetadataExtractor interface {
	Extract(ctx context.Context, path string) (*metadata.Tags, error)
}
