package pixarr

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"pixarr-go/internal/capture"
	"pixarr-go/internal/metadata"
)

// Screening is everything the pipeline learned about one file before ledger
// state is consulted. Disposition is set when screening alone decided the
// outcome (junk, unsupported_ext, stat_error, zero_bytes); it is empty for a
// candidate that continues to duplicate resolution.
type Screening struct {
	Path        *Path
	Name        string
	Ext         string
	Disposition Disposition
	Detail      string
	Health      Health
	Fingerprint Fingerprint
	Tags        *metadata.Tags
	Times       FileTimes
}

// Candidate reports whether the file passed every screen.
func (s *Screening) Candidate() bool {
	return s.Disposition == ""
}

// Digested reports whether a binary digest was computed.
func (s *Screening) Digested() bool {
	return s.Fingerprint.Binary != ""
}

// Screener runs the per-file checks in their fixed order: junk, extension,
// health, then fingerprint and metadata.
type Screener struct {
	opts          Options
	fsmgr         FilesystemManager
	junk          JunkMatcher
	fingerprinter Fingerprinter
	extractor     MetadataExtractor
	resolver      *capture.Resolver
	logger        Logger
}

func NewScreener(opts Options, fsmgr FilesystemManager, junk JunkMatcher, fingerprinter Fingerprinter, extractor MetadataExtractor, logger Logger) *Screener {
	return &Screener{
		opts:          opts,
		fsmgr:         fsmgr,
		junk:          junk,
		fingerprinter: fingerprinter,
		extractor:     extractor,
		resolver:      capture.NewResolver(opts.Dates),
		logger:        logger,
	}
}

// Screen classifies one file. The only error it returns is context cancellation.
func (s *Screener) Screen(ctx context.Context, p *Path) (*Screening, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := p.Name()
	sc := &Screening{Path: p, Name: name, Ext: strings.ToLower(filepath.Ext(name))}

	if detail, ok := s.junk.Junk(name); ok {
		sc.Disposition, sc.Detail = Junk, detail
		return sc, nil
	}

	// Suffix only: a dangling clip.mov must reach the health check.
	if !s.opts.Supported(sc.Ext) {
		sc.Disposition, sc.Detail = UnsupportedExt, sc.Ext
		if sc.Ext == "" {
			sc.Detail = "(none)"
		}
		return sc, nil
	}

	sc.Health = s.fsmgr.Check(p)
	switch sc.Health.Kind {
	case HealthStatError:
		sc.Disposition, sc.Detail = StatError, sc.Health.Err.Error()
		return sc, nil
	case HealthZeroBytes:
		sc.Disposition = ZeroBytes
		if err := s.digest(sc); err != nil {
			s.logger.Warn("digesting empty file failed", "path", p.String(), "error", err)
		}
		return sc, nil
	}

	if err := s.digest(sc); err != nil {
		sc.Disposition, sc.Detail = StatError, err.Error()
		return sc, nil
	}

	tags, err := s.extractor.Extract(ctx, p.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Debug("metadata extraction failed, treating as absent", "path", p.String(), "error", err)
		tags = metadata.Empty()
	}
	if tags == nil {
		tags = metadata.Empty()
	}
	sc.Tags = tags

	if s.opts.Dates.AllowFilesystem {
		times, err := s.fsmgr.FileTimes(p)
		if err != nil {
			s.logger.Debug("reading file times failed", "path", p.String(), "error", err)
		}
		sc.Times = times
	}
	return sc, nil
}

func (s *Screener) digest(sc *Screening) error {
	f, err := s.fsmgr.Open(sc.Path)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer f.Close()

	fp, err := s.fingerprinter.Fingerprint(f, sc.Ext)
	if err != nil {
		return fmt.Errorf("fingerprinting: %w", err)
	}
	if fp.ContentSkipped != "" {
		s.logger.Warn("content digest skipped", "path", sc.Path.String(), "reason", fp.ContentSkipped)
	}
	sc.Fingerprint = fp
	return nil
}

// Date resolves the capture time of a screened candidate.
func (s *Screener) Date(sc *Screening) (capture.Result, []capture.Rejected) {
	return s.resolver.Resolve(capture.Input{
		Tags:     sc.Tags,
		Filename: sc.Name,
		Modified: sc.Times.Modified,
		Born:     sc.Times.Born,
	})
}
