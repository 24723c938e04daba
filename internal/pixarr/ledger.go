package pixarr

import "errors"

// ErrLedger marks a failed ledger write. It is fatal for a batch.
var ErrLedger = errors.New("ledger write failed")

// Ledger is the durable store of binaries, sightings and batches.
// Lookups return nil, nil when nothing matches.
type Ledger interface {
	CreateBatch(batch *Batch) error
	CloseBatch(id string, summary string) error
	FindBatch(id string) (*Batch, error)

	FindBinaryByDigest(binaryDigest string) (*BinaryRecord, error)
	FindBinaryByID(id string) (*BinaryRecord, error)

	// FindContentMatch returns the oldest staged, review or library record
	// with the given content digest and a different binary digest.
	FindContentMatch(contentDigest, binaryDigest string) (*BinaryRecord, error)

	// RecordObservation upserts rec keyed by binary digest, applies t and
	// appends the sighting, all in one transaction. rec may be nil when the
	// file could not be digested; only the sighting is written then.
	// An existing record keeps its GPS and content digest when already set;
	// its capture time only changes through a Retime transition. Returns the
	// stored record.
	RecordObservation(rec *BinaryRecord, sighting *Sighting, t Transition) (*BinaryRecord, error)

	// ApplyTransition changes the state of an existing record.
	ApplyTransition(id string, t Transition) (*BinaryRecord, error)

	ListBatches(limit int) ([]*Batch, error)
	ListSightingsForBatch(batchID string) ([]*Sighting, error)
	// ListBinariesByState lists records oldest first. limit <= 0 means no limit.
	ListBinariesByState(state State, limit int) ([]*BinaryRecord, error)
	// ReviewQueue lists review records by capture time.
	ReviewQueue(limit int) ([]*BinaryRecord, error)
	CountByState() ([]Count, error)
	CountByQuarantineReason() ([]Count, error)
	ListContentClusters() ([]*ContentCluster, error)
	RunChecks() ([]CheckResult, error)
	DumpSchema() (string, error)

	CheckMigrations() error
	Migrate() error
	BackupTo(path string) error
	Close() error
}
