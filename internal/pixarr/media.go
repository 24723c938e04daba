package pixarr

// SidecarSuffix is appended to a quarantined file's path to name its sidecar.
const SidecarSuffix = ".quarantine.json"

// Sidecar is the JSON record written next to every quarantined file.
// QuarantinedTo is null when the move into quarantine failed.
type Sidecar struct {
	Reason        Disposition `json:"reason"`
	Extra         string      `json:"extra"`
	OriginalPath  string      `json:"original_path"`
	QuarantinedTo *string     `json:"quarantined_to"`
	BatchID       string      `json:"batch_id"`
	Timestamp     string      `json:"timestamp"`
}

// MediaArea owns the Review and Quarantine trees. Nothing is ever
// overwritten: names that are taken receive a _2, _3, ... suffix.
type MediaArea interface {
	// ReserveReview returns a free destination for name in Review/.
	ReserveReview(name string) string

	// Place moves src to dest, failing if dest already exists. A sidecar
	// next to src is removed once the move succeeds.
	Place(src *Path, dest string) error

	// Quarantine moves src into Quarantine/<sc.Reason>/ under its original
	// name and writes the sidecar. It returns the final path.
	Quarantine(src *Path, sc *Sidecar) (string, error)

	// Delete removes src from the staging area.
	Delete(src *Path) error

	Exists(path string) bool

	QuarantineDir(reason Disposition) string
}
