package pixarr

import (
	"fmt"
	"strings"
)

// Stats counts the outcome of every file visited in a batch.
type Stats struct {
	// Scanned counts files that passed the junk and extension screens.
	Scanned  int
	Warnings int
	counts   map[Disposition]int
}

func NewStats() *Stats {
	return &Stats{counts: make(map[Disposition]int)}
}

func (s *Stats) add(d Disposition) {
	s.counts[d]++
}

// Count returns the number of files that received disposition d.
func (s *Stats) Count(d Disposition) int {
	return s.counts[d]
}

// Total is the number of files visited.
func (s *Stats) Total() int {
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Summary renders the counters in pipeline order, omitting zeros. It is
// stored on the batch row.
func (s *Stats) Summary() string {
	parts := []string{fmt.Sprintf("scanned=%d", s.Scanned)}
	for _, d := range Dispositions {
		if n := s.counts[d]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", d, n))
		}
	}
	parts = append(parts, fmt.Sprintf("warnings=%d", s.Warnings))
	return strings.Join(parts, " ")
}

// BatchResult is what an ingest run reports back to the caller.
type BatchResult struct {
	Batch *Batch // nil when there was nothing to do
	Stats *Stats
}
