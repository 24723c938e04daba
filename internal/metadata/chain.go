package metadata

import (
	"context"
	"errors"
)

// Extractor is implemented by every metadata source in this package.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Tags, error)
}

// Chain tries each extractor in order and returns the first success.
type Chain struct {
	extractors []Extractor
}

func NewChain(extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors}
}

// Extract returns the first extractor's tags that succeeded. When every
// extractor fails it returns empty tags together with the joined errors, so
// callers can treat the failure as missing metadata.
func (c *Chain) Extract(ctx context.Context, path string) (*Tags, error) {
	var errs []error
	for _, e := range c.extractors {
		tags, err := e.Extract(ctx, path)
		if err == nil {
			return tags, nil
		}
		if ctx.Err() != nil {
			return Empty(), ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Empty(), nil
	}
	return Empty(), errors.Join(errs...)
}
