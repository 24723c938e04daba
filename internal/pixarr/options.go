package pixarr

import (
	"fmt"
	"strings"

	"pixarr-go/internal/capture"
)

// Action is what happens to a duplicate file.
type Action string

const (
	ActionIgnore     Action = "ignore" // leave in place, mark the record verified
	ActionQuarantine Action = "quarantine"
	ActionDelete     Action = "delete"
)

// ParseAction validates a configured policy value.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionIgnore, ActionQuarantine, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// DuplicatePolicy selects the action per duplicate kind.
type DuplicatePolicy struct {
	InLibrary Action
	InReview  Action
	Content   Action
}

// For returns the action for a duplicate disposition.
func (p DuplicatePolicy) For(d Disposition) Action {
	switch d {
	case DuplicateInLibrary:
		return p.InLibrary
	case DuplicateInReview:
		return p.InReview
	case DuplicateContent:
		return p.Content
	default:
		return ActionIgnore
	}
}

// Options is the explicit configuration of one ingest run.
type Options struct {
	DryRun       bool
	SupportedExt map[string]bool
	Quarantine   map[Disposition]bool
	Dates        capture.Options
	Duplicates   DuplicatePolicy
}

// DefaultOptions returns dry-run options that quarantine every reason,
// accept the standard photo and video extensions and use no date fallbacks.
func DefaultOptions() Options {
	exts := []string{
		".jpg", ".jpeg", ".heic", ".heif", ".avif", ".png", ".tif", ".tiff", ".gif", ".webp",
		".mp4", ".mov", ".m4v", ".avi", ".webm", ".mkv",
		".dng", ".cr2", ".cr3", ".nef", ".arw", ".raf", ".rw2", ".orf", ".srw",
	}
	return Options{
		DryRun:       true,
		SupportedExt: ExtSet(exts),
		Quarantine: map[Disposition]bool{
			Junk:            true,
			UnsupportedExt:  true,
			StatError:       true,
			ZeroBytes:       true,
			MissingDatetime: true,
			MoveFailed:      true,
		},
		Duplicates: DuplicatePolicy{
			InLibrary: ActionQuarantine,
			InReview:  ActionIgnore,
			Content:   ActionQuarantine,
		},
	}
}

// ExtSet builds a lookup set of lowercased extensions.
func ExtSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return set
}

// Supported matches by suffix alone.
func (o Options) Supported(ext string) bool {
	return ext != "" && o.SupportedExt[strings.ToLower(ext)]
}

func (o Options) Quarantines(d Disposition) bool {
	return o.Quarantine[d]
}

func (o Options) mode() string {
	if o.DryRun {
		return ModeDryRun
	}
	return ModeWrite
}
