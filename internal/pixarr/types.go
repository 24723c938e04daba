package pixarr

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a BinaryRecord.
type State string

const (
	StateStaged     State = "staged"
	StateReview     State = "review"
	StateLibrary    State = "library"
	StateQuarantine State = "quarantine"
	StateDeleted    State = "deleted"
)

// Placed reports whether records in this state own a canonical path.
func (s State) Placed() bool {
	return s == StateReview || s == StateLibrary
}

// Disposition is the outcome the screening pipeline assigns to one file.
// Every non-accepted disposition doubles as a quarantine reason.
type Disposition string

const (
	Junk               Disposition = "junk"
	UnsupportedExt     Disposition = "unsupported_ext"
	StatError          Disposition = "stat_error"
	ZeroBytes          Disposition = "zero_bytes"
	MissingDatetime    Disposition = "missing_datetime"
	DuplicateInLibrary Disposition = "duplicate_in_library"
	DuplicateInReview  Disposition = "duplicate_in_review"
	DuplicateContent   Disposition = "duplicate_content"
	MoveFailed         Disposition = "move_failed"
	Accepted           Disposition = "accepted"
)

// Dispositions lists every disposition in pipeline order.
var Dispositions = []Disposition{
	Junk, UnsupportedExt, StatError, ZeroBytes,
	DuplicateInLibrary, DuplicateInReview, DuplicateContent,
	MissingDatetime, MoveFailed, Accepted,
}

// Tracked reports whether the ledger records files with this disposition.
func (d Disposition) Tracked() bool {
	return d != Junk && d != UnsupportedExt
}

func (d Disposition) IsDuplicate() bool {
	return d == DuplicateInLibrary || d == DuplicateInReview || d == DuplicateContent
}

// BinaryID derives the record identifier from a binary digest (UUIDv5, DNS namespace).
func BinaryID(binaryDigest string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(binaryDigest)).String()
}

// Coordinates is a GPS position in signed decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// BinaryRecord is one unique exact-binary identity.
type BinaryRecord struct {
	ID               string
	BinaryDigest     string
	ContentDigest    string // empty for undecodable formats
	Ext              string
	Bytes            int64
	TakenAt          time.Time // zero when undatable
	TakenSource      string
	TZOffset         string
	GPS              *Coordinates
	State            State
	CanonicalPath    string
	QuarantineReason Disposition
	AddedAt          time.Time
	UpdatedAt        time.Time
	LastVerifiedAt   time.Time
	DeletedAt        time.Time
}

// Sighting is one observation of a file during one batch. BinaryID is empty
// when the file could not be digested.
type Sighting struct {
	ID          int64
	BinaryID    string
	SourceRoot  string
	FullPath    string
	Filename    string
	FolderHint  string
	BatchID     string
	Disposition Disposition
	Detail      string
	SeenAt      time.Time
}

// Batch is one ingest run over one source.
type Batch struct {
	ID         string
	Source     string
	Mode       string // "dry-run" or "write"
	StartedAt  time.Time
	FinishedAt time.Time // zero while running or after an interrupted run
	Notes      string
	Summary    string
}

const (
	ModeDryRun = "dry-run"
	ModeWrite  = "write"
)

// Transition is a requested change to a record's state. A zero Transition
// leaves the state untouched. Moving into a state clears fields that do not
// belong to it: canonical path outside review/library, quarantine reason
// outside quarantine.
type Transition struct {
	State         State
	CanonicalPath string
	Reason        Disposition
	Verified      bool

	// Retime replaces the stored capture time with TakenAt, TakenSource and
	// TZOffset. A zero TakenAt clears it.
	Retime      bool
	TakenAt     time.Time
	TakenSource string
	TZOffset    string
}

// Count is one row of a grouped report.
type Count struct {
	Key   string
	Count int64
}

// ContentCluster is a set of distinct binaries sharing decoded pixels.
type ContentCluster struct {
	ContentDigest string
	BinaryIDs     []string
}

// CheckResult is one ledger consistency check. Count is the number of offending rows.
type CheckResult struct {
	Name  string
	Count int64
}
