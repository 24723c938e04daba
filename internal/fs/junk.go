package fs

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"pixarr-go/internal/pixarr"
)

// fold applies Unicode case folding. A Caser is not safe for concurrent use,
// so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Matcher checks base names against glob patterns, ignoring case.
type Matcher struct {
	patterns []string
}

// NewMatcher creates a Matcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewMatcher(rawPatterns []string) *Matcher {
	var patterns []string
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, fold(raw))
	}
	return &Matcher{patterns: patterns}
}

// Match reports whether name matches any pattern.
func (m *Matcher) Match(name string) bool {
	_, ok := m.match(name)
	return ok
}

func (m *Matcher) match(name string) (string, bool) {
	folded := fold(filepath.Base(name))
	for _, p := range m.patterns {
		matched, err := filepath.Match(p, folded)
		if err != nil {
			// Bad pattern: skip rather than crash.
			continue
		}
		if matched {
			return p, true
		}
	}
	return "", false
}

// JunkMatcher recognizes OS clutter such as .DS_Store and AppleDouble files.
type JunkMatcher struct {
	m *Matcher
}

func NewJunkMatcher(patterns []string) *JunkMatcher {
	return &JunkMatcher{m: NewMatcher(patterns)}
}

// Junk returns "appledouble" for ._ resource forks and "system_file" for
// any other match.
func (j *JunkMatcher) Junk(name string) (string, bool) {
	p, ok := j.m.match(name)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(p, "._") {
		return "appledouble", true
	}
	return "system_file", true
}

var _ pixarr.JunkMatcher = (*JunkMatcher)(nil)
