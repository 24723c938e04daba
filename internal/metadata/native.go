package metadata

import (
	"context"
	"fmt"
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// Native reads EXIF in-process. It understands JPEG and TIFF-based files
// (including most RAW formats) and nothing else.
type Native struct{}

func NewNative() *Native { return &Native{} }

var nativeFields = []struct {
	field exif.FieldName
	name  string
}{
	{exif.DateTimeOriginal, "DateTimeOriginal"},
	{exif.DateTimeDigitized, "DateTimeDigitized"},
	{exif.DateTime, "ModifyDate"},
	{exif.Make, "Make"},
	{exif.Model, "Model"},
}

func (n *Native) Extract(ctx context.Context, path string) (*Tags, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("native extract: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("native extract: decoding exif: %w", err)
	}

	t := Empty()
	t.Source = "native"
	for _, nf := range nativeFields {
		tag, err := x.Get(nf.field)
		if err != nil {
			continue
		}
		s, err := tag.StringVal()
		if err != nil {
			continue
		}
		t.set("EXIF", nf.name, s)
	}
	if lat, lon, err := x.LatLong(); err == nil && (lat != 0 || lon != 0) {
		t.GPS = &GPS{Lat: lat, Lon: lon}
	}
	return t, nil
}
