package pixarr

import "fmt"

// Match is the ledger record a new sighting collided with.
type Match struct {
	Basis  string // "binary" or "content"
	Record *BinaryRecord
}

// Resolution is the outcome of duplicate resolution for one candidate.
type Resolution struct {
	// Disposition is a duplicate_* disposition, or empty when the file
	// continues to placement.
	Disposition Disposition
	Match       *Match

	// Reuse is set for known binaries whose placement must be redone
	// (a review record whose file vanished, or a failed move). The stored
	// capture time is used instead of resolving it again.
	Reuse bool
}

// Extra renders the sidecar detail for a duplicate.
func (r Resolution) Extra() string {
	if r.Match == nil {
		return ""
	}
	return fmt.Sprintf("basis=%s matched=%s state=%s", r.Match.Basis, r.Match.Record.ID, r.Match.Record.State)
}

// DuplicateResolver decides whether a candidate repeats something the ledger
// already knows, first by exact binary identity, then by decoded pixels.
type DuplicateResolver struct {
	ledger Ledger
	exists func(path string) bool
}

// NewDuplicateResolver creates a resolver. exists is used to check that a
// review record's canonical file is still on disk.
func NewDuplicateResolver(ledger Ledger, exists func(path string) bool) *DuplicateResolver {
	return &DuplicateResolver{ledger: ledger, exists: exists}
}

// Resolve classifies a candidate against the existing record for its binary
// digest (nil if unseen).
func (d *DuplicateResolver) Resolve(fp Fingerprint, existing *BinaryRecord) (Resolution, error) {
	if existing != nil {
		switch existing.State {
		case StateLibrary:
			return Resolution{
				Disposition: DuplicateInLibrary,
				Match:       &Match{Basis: "binary", Record: existing},
			}, nil
		case StateReview:
			if existing.CanonicalPath != "" && d.exists(existing.CanonicalPath) {
				return Resolution{
					Disposition: DuplicateInReview,
					Match:       &Match{Basis: "binary", Record: existing},
				}, nil
			}
			return Resolution{Reuse: !existing.TakenAt.IsZero()}, nil
		case StateQuarantine:
			if existing.QuarantineReason == MoveFailed && !existing.TakenAt.IsZero() {
				return Resolution{Reuse: true}, nil
			}
		}
		// staged, deleted and other quarantine reasons are reclassified.
	}

	if fp.Content == "" {
		return Resolution{}, nil
	}
	match, err := d.ledger.FindContentMatch(fp.Content, fp.Binary)
	if err != nil {
		return Resolution{}, fmt.Errorf("finding content match: %w", err)
	}
	if match != nil {
		return Resolution{
			Disposition: DuplicateContent,
			Match:       &Match{Basis: "content", Record: match},
		}, nil
	}
	return Resolution{}, nil
}
