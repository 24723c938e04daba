package app

import (
	"fmt"

	"pixarr-go/internal/capture"
	"pixarr-go/internal/config"
	"pixarr-go/internal/pixarr"
)

// OptionsFromConfig builds the ingest options once from config. Command-line
// overrides are applied on top by the caller.
func OptionsFromConfig(cfg *config.Config) (pixarr.Options, error) {
	var policy pixarr.DuplicatePolicy
	for _, p := range []struct {
		dst *pixarr.Action
		raw string
	}{
		{&policy.InLibrary, cfg.Duplicates.InLibrary},
		{&policy.InReview, cfg.Duplicates.InReview},
		{&policy.Content, cfg.Duplicates.Content},
	} {
		a, err := pixarr.ParseAction(p.raw)
		if err != nil {
			return pixarr.Options{}, err
		}
		*p.dst = a
	}

	q := cfg.Quarantine
	return pixarr.Options{
		DryRun:       cfg.Ingest.DryRun,
		SupportedExt: pixarr.ExtSet(cfg.SupportedExt()),
		Quarantine: map[pixarr.Disposition]bool{
			pixarr.Junk:            q.Junk,
			pixarr.UnsupportedExt:  q.UnsupportedExt,
			pixarr.StatError:       q.StatError,
			pixarr.ZeroBytes:       q.ZeroBytes,
			pixarr.MissingDatetime: q.MissingDatetime,
			pixarr.MoveFailed:      q.MoveFailed,
		},
		Dates: capture.Options{
			AllowFilename:   cfg.Dates.AllowFilename,
			AllowFilesystem: cfg.Dates.AllowFilesystem,
		},
		Duplicates: policy,
	}, nil
}

// IngestRequest carries the ingest command line.
type IngestRequest struct {
	Sources            []string // empty means every configured source
	Write              bool
	Note               string
	AllowFilenameDates bool
	AllowFileDates     bool
	DupReviewPolicy    string // overrides duplicates.in_review when set
}

func (r IngestRequest) apply(opts pixarr.Options) (pixarr.Options, error) {
	if r.Write {
		opts.DryRun = false
	}
	if r.AllowFilenameDates {
		opts.Dates.AllowFilename = true
	}
	if r.AllowFileDates {
		opts.Dates.AllowFilesystem = true
	}
	if r.DupReviewPolicy != "" {
		a, err := pixarr.ParseAction(r.DupReviewPolicy)
		if err != nil {
			return opts, fmt.Errorf("--dup-review-policy: %w", err)
		}
		opts.Duplicates.InReview = a
	}
	return opts, nil
}
