package capture

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var exifDateRe = regexp.MustCompile(
	`^(\d{4}):(\d{2}):(\d{2})[ T](\d{2}):(\d{2}):(\d{2})(?:\.(\d+))?(Z|[+-]\d{2}:?\d{2})?$`)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseEmbedded parses an embedded date value. EXIF style values
// ("2024:01:16 15:57:40", optionally with fraction and offset) are tried
// first, then ISO-8601. offset is "+HH:MM" when the value carried one.
//
// Values without an offset are returned as wall-clock time in UTC.
func ParseEmbedded(s string) (t time.Time, offset string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, "", false
	}

	if m := exifDateRe.FindStringSubmatch(s); m != nil {
		loc := time.UTC
		if tz := m[8]; tz != "" && tz != "Z" {
			offset = normalizeOffset(tz)
			loc, ok = fixedZone(offset)
			if !ok {
				return time.Time{}, "", false
			}
		} else if tz == "Z" {
			offset = "+00:00"
		}
		nanos := 0
		if frac := m[7]; frac != "" {
			frac = (frac + "000000000")[:9]
			nanos, _ = strconv.Atoi(frac)
		}
		t, ok = civil(loc, atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), atoi(m[5]), atoi(m[6]), nanos)
		return t, offset, ok
	}

	iso := strings.Replace(s, "Z", "+00:00", 1)
	for _, layout := range isoLayouts {
		parsed, err := time.Parse(layout, iso)
		if err != nil {
			continue
		}
		if layout == time.RFC3339Nano {
			_, secs := parsed.Zone()
			offset = formatOffset(secs)
		}
		return parsed, offset, true
	}
	return time.Time{}, "", false
}

// civil builds a time from calendar fields, rejecting values that
// time.Date would silently normalize (month 13, February 30, ...).
func civil(loc *time.Location, y, mo, d, h, mi, s, ns int) (time.Time, bool) {
	if mo < 1 || mo > 12 || d < 1 || d > 31 || h > 23 || mi > 59 || s > 60 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, h, mi, s, ns, loc)
	if t.Day() != d || int(t.Month()) != mo {
		return time.Time{}, false
	}
	return t, true
}

func normalizeOffset(tz string) string {
	if len(tz) == 5 { // +HHMM
		return tz[:3] + ":" + tz[3:]
	}
	return tz
}

func fixedZone(offset string) (*time.Location, bool) {
	if len(offset) != 6 || offset[3] != ':' {
		return nil, false
	}
	h, err1 := strconv.Atoi(offset[1:3])
	m, err2 := strconv.Atoi(offset[4:6])
	if err1 != nil || err2 != nil || h > 14 || m > 59 {
		return nil, false
	}
	secs := h*3600 + m*60
	if offset[0] == '-' {
		secs = -secs
	}
	return time.FixedZone(offset, secs), true
}

func formatOffset(secs int) string {
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	return string(sign) + twoDigits(secs/3600) + ":" + twoDigits(secs%3600/60)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
