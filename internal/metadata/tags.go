// Package metadata extracts embedded capture metadata from media files.
//
// Extractor output is folded into Tags: a fixed set of recognized fields per
// vocabulary (still-image EXIF and video container atoms), GPS coordinates, and
// an Unrecognized bucket holding every other key the tool reported.
package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// Still holds the recognized EXIF date fields of still images.
type Still struct {
	DateTimeOriginal   string
	CreateDate         string // EXIF 0x9004, called DateTimeDigitized by some tools
	ModifyDate         string
	OffsetTimeOriginal string
}

// Video holds the recognized QuickTime/MP4 container date fields.
type Video struct {
	MediaCreateDate string
	TrackCreateDate string
	CreateDate      string
	CreationDate    string
}

// GPS is a signed decimal-degree coordinate.
type GPS struct {
	Lat float64
	Lon float64
}

// Tags is the typed view of one file's embedded metadata.
type Tags struct {
	Source       string // extractor that produced the tags
	Still        Still
	Video        Video
	GPS          *GPS
	Unrecognized map[string]string
}

// Empty returns tags carrying no metadata at all.
func Empty() *Tags {
	return &Tags{Unrecognized: map[string]string{}}
}

// IsEmpty reports whether no recognized field was set.
func (t *Tags) IsEmpty() bool {
	return t == nil || (t.Still == Still{} && t.Video == Video{} && t.GPS == nil)
}

// set routes one tool key into the recognized fields. group is the tool's
// family-0 group name ("EXIF", "QuickTime", "Composite", ...) or "" when the
// output was not grouped.
func (t *Tags) set(group, name, value string) {
	switch {
	case name == "DateTimeOriginal" && (group == "" || group == "EXIF" || group == "XMP"):
		setOnce(&t.Still.DateTimeOriginal, value)
	case (name == "CreateDate" || name == "DateTimeDigitized") && (group == "" || group == "EXIF"):
		setOnce(&t.Still.CreateDate, value)
	case name == "ModifyDate" && (group == "" || group == "EXIF"):
		setOnce(&t.Still.ModifyDate, value)
	case name == "OffsetTimeOriginal":
		setOnce(&t.Still.OffsetTimeOriginal, value)
	case name == "MediaCreateDate":
		setOnce(&t.Video.MediaCreateDate, value)
	case name == "TrackCreateDate":
		setOnce(&t.Video.TrackCreateDate, value)
	case name == "CreateDate" && group == "QuickTime":
		setOnce(&t.Video.CreateDate, value)
	case name == "CreationDate":
		setOnce(&t.Video.CreationDate, value)
	default:
		key := name
		if group != "" {
			key = group + ":" + name
		}
		t.Unrecognized[key] = value
	}
}

func setOnce(field *string, value string) {
	if *field == "" {
		*field = strings.TrimSpace(value)
	}
}

// FromMap builds Tags from one flattened exiftool JSON object. Keys may carry a
// group prefix ("QuickTime:CreateDate") or not ("CreateDate").
func FromMap(source string, raw map[string]any) *Tags {
	t := Empty()
	t.Source = source

	var lat, lon *float64
	var latRef, lonRef string
	for key, v := range raw {
		group, name := splitKey(key)
		value := stringify(v)
		switch name {
		case "SourceFile":
			continue
		case "GPSLatitude":
			if f, ok := toFloat(v); ok && (lat == nil || group == "Composite") {
				lat = &f
			}
			continue
		case "GPSLongitude":
			if f, ok := toFloat(v); ok && (lon == nil || group == "Composite") {
				lon = &f
			}
			continue
		case "GPSLatitudeRef":
			latRef = value
			continue
		case "GPSLongitudeRef":
			lonRef = value
			continue
		}
		t.set(group, name, value)
	}

	if lat != nil && lon != nil {
		g := GPS{Lat: *lat, Lon: *lon}
		if g.Lat > 0 && strings.HasPrefix(strings.ToUpper(latRef), "S") {
			g.Lat = -g.Lat
		}
		if g.Lon > 0 && strings.HasPrefix(strings.ToUpper(lonRef), "W") {
			g.Lon = -g.Lon
		}
		if g.Lat != 0 || g.Lon != 0 {
			t.GPS = &g
		}
	}
	return t
}

func splitKey(key string) (group, name string) {
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
