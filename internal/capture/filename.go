package capture

import (
	"regexp"
	"time"
)

// Each pattern captures year, month, day, hour, minute, second in order.
var filenamePatterns = []*regexp.Regexp{
	// PHOTO-2024-07-10-20-08-42, 2024-07-10_20.08.42
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[-_ T]+(\d{2})[-_.:](\d{2})[-_.:](\d{2})`),
	// IMG_20240710_200842
	regexp.MustCompile(`(\d{4})(\d{2})(\d{2})[_-](\d{2})(\d{2})(\d{2})`),
	// WhatsApp Image 2024-07-10 at 20.08.42
	regexp.MustCompile(`(?i)(\d{4})-(\d{2})-(\d{2})\s+at\s+(\d{2})[.:](\d{2})[.:](\d{2})`),
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[ _](\d{2})[.:](\d{2})[.:](\d{2})`),
	// PXL_20240710_200842123
	regexp.MustCompile(`(?i)PXL_(\d{4})(\d{2})(\d{2})[_-](\d{2})(\d{2})(\d{2})`),
}

// FromFilename extracts a wall-clock timestamp embedded in a filename.
// Matches that are not valid calendar dates are skipped.
func FromFilename(name string) (time.Time, bool) {
	for _, re := range filenamePatterns {
		for _, m := range re.FindAllStringSubmatch(name, -1) {
			t, ok := civil(time.UTC, atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), atoi(m[5]), atoi(m[6]), 0)
			if ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
