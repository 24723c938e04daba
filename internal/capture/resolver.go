// Package capture resolves the capture time of a media file from embedded
// metadata, the filename and filesystem timestamps under a fixed precedence.
package capture

import (
	"strings"
	"time"

	"pixarr-go/internal/metadata"
)

// Options selects the optional fallback sources. Embedded metadata is always consulted.
type Options struct {
	AllowFilename   bool
	AllowFilesystem bool
}

// Input carries every candidate source for one file.
type Input struct {
	Tags     *metadata.Tags
	Filename string
	Modified time.Time
	Born     time.Time // zero when the platform does not report a birth time
}

// Result is the resolved capture time. Source names the winning candidate,
// e.g. "embedded:DateTimeOriginal", "filename" or "filesystem:mtime".
type Result struct {
	Time   time.Time
	Offset string
	Source string
}

// Found reports whether a timestamp was resolved. A zero Result means the
// file is undatable.
func (r Result) Found() bool {
	return r.Source != ""
}

// Rejected describes a candidate dropped because it held a placeholder value.
type Rejected struct {
	Source string
	Value  string
}

type Resolver struct {
	opts Options
}

func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

type embeddedKey struct {
	name  string
	value func(*metadata.Tags) string
}

// Embedded keys in priority order.
var embeddedKeys = []embeddedKey{
	{"DateTimeOriginal", func(t *metadata.Tags) string { return t.Still.DateTimeOriginal }},
	{"CreateDate", func(t *metadata.Tags) string { return t.Still.CreateDate }},
	{"MediaCreateDate", func(t *metadata.Tags) string { return t.Video.MediaCreateDate }},
	{"TrackCreateDate", func(t *metadata.Tags) string { return t.Video.TrackCreateDate }},
	{"QuickTime:CreateDate", func(t *metadata.Tags) string { return t.Video.CreateDate }},
	{"QuickTime:CreationDate", func(t *metadata.Tags) string { return t.Video.CreationDate }},
}

// Resolve returns the first non-sentinel timestamp in precedence order,
// along with every sentinel candidate it skipped.
func (r *Resolver) Resolve(in Input) (Result, []Rejected) {
	var rejected []Rejected

	if in.Tags != nil {
		for _, k := range embeddedKeys {
			raw := k.value(in.Tags)
			if raw == "" {
				continue
			}
			source := "embedded:" + k.name
			t, offset, ok := ParseEmbedded(raw)
			if !ok {
				if strings.Trim(raw, "0:-T .") == "" {
					rejected = append(rejected, Rejected{Source: source, Value: raw})
				}
				continue
			}
			if IsSentinel(t) {
				rejected = append(rejected, Rejected{Source: source, Value: raw})
				continue
			}
			if offset == "" && k.name == "DateTimeOriginal" {
				offset, t = applyOffset(t, in.Tags.Still.OffsetTimeOriginal)
			}
			return Result{Time: t, Offset: offset, Source: source}, rejected
		}
	}

	if r.opts.AllowFilename {
		if t, ok := FromFilename(in.Filename); ok {
			if !IsSentinel(t) {
				return Result{Time: t, Source: "filename"}, rejected
			}
			rejected = append(rejected, Rejected{Source: "filename", Value: in.Filename})
		}
	}

	if r.opts.AllowFilesystem {
		for _, c := range []struct {
			source string
			t      time.Time
		}{
			{"filesystem:mtime", in.Modified},
			{"filesystem:birthtime", in.Born},
		} {
			if c.t.IsZero() {
				continue
			}
			if IsSentinel(c.t) {
				rejected = append(rejected, Rejected{Source: c.source, Value: c.t.UTC().Format(time.RFC3339)})
				continue
			}
			_, secs := c.t.Zone()
			return Result{Time: c.t, Offset: formatOffset(secs), Source: c.source}, rejected
		}
	}

	return Result{}, rejected
}

// applyOffset attaches an OffsetTimeOriginal value to a wall-clock time
// without moving the wall clock.
func applyOffset(t time.Time, raw string) (string, time.Time) {
	if raw == "" {
		return "", t
	}
	offset := normalizeOffset(raw)
	loc, ok := fixedZone(offset)
	if !ok {
		return "", t
	}
	return offset, time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// IsSentinel reports whether t is a placeholder rather than a real capture
// time: year 0000, year 0001, or the Unix epoch instant.
func IsSentinel(t time.Time) bool {
	if t.IsZero() {
		return true
	}
	if y := t.Year(); y == 0 || y == 1 {
		return true
	}
	return t.Unix() == 0
}
