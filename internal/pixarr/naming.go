package pixarr

import (
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

const canonicalLayout = "2006-01-02_15-04-05"

// CanonicalName is the review file name for a dated binary:
// <YYYY-MM-DD_HH-MM-SS>_<first 8 hex of digest><lowercased ext>.
// The wall clock of taken is used as-is.
func CanonicalName(taken time.Time, binaryDigest, ext string) string {
	prefix := binaryDigest
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return taken.Format(canonicalLayout) + "_" + prefix + strings.ToLower(ext)
}

var genericFolders = map[string]bool{
	"dcim": true, "misc": true, "export": true, "photos": true, "images": true,
	"img": true, "camera": true, "mobile": true, "iphone": true, "android": true,
}

// FolderHint returns the nearest parent directory of fullPath below root
// that looks meaningful: not a generic camera or device folder, and with
// at least one word of three or more characters. It returns "" when none qualifies.
func FolderHint(root, fullPath string) string {
	rel, err := filepath.Rel(root, filepath.Dir(fullPath))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	parts := strings.Split(rel, string(filepath.Separator))
	for i := len(parts) - 1; i >= 0; i-- {
		if meaningful(parts[i]) {
			return parts[i]
		}
	}
	return ""
}

func meaningful(dir string) bool {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(dir))
	if len(words) == 0 || genericFolders[cases.Fold().String(strings.Join(words, " "))] {
		return false
	}
	for _, w := range words {
		if utf8.RuneCountInString(w) >= 3 {
			return true
		}
	}
	return false
}
