package testutil

import (
	"context"
	"path/filepath"
	"sync"

	"pixarr-go/internal/metadata"
)

// StubExtractor returns canned metadata keyed by file base name. Files
// without an entry have no metadata. Safe for concurrent use.
type StubExtractor struct {
	mu   sync.Mutex
	tags map[string]*metadata.Tags
	Err  error
}

func NewStubExtractor() *StubExtractor {
	return &StubExtractor{tags: make(map[string]*metadata.Tags)}
}

// Set registers tags for a base name.
func (s *StubExtractor) Set(name string, tags *metadata.Tags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[name] = tags
}

// SetTaken registers an EXIF DateTimeOriginal ("2006:01:02 15:04:05") for a base name.
func (s *StubExtractor) SetTaken(name, exifDate string) {
	tags := metadata.Empty()
	tags.Source = "stub"
	tags.Still.DateTimeOriginal = exifDate
	s.Set(name, tags)
}

func (s *StubExtractor) Extract(_ context.Context, path string) (*metadata.Tags, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	if tags, ok := s.tags[filepath.Base(path)]; ok {
		return tags, nil
	}
	return metadata.Empty(), nil
}
