package database

import (
	"fmt"

	"pixarr-go/internal/pixarr"
)

func (s *SQLiteLedger) counts(query string) ([]pixarr.Count, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []pixarr.Count
	for rows.Next() {
		var c pixarr.Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *SQLiteLedger) CountByState() ([]pixarr.Count, error) {
	counts, err := s.counts(`SELECT state, COUNT(*) FROM binaries GROUP BY state ORDER BY state`)
	if err != nil {
		return nil, fmt.Errorf("counting by state: %w", err)
	}
	return counts, nil
}

func (s *SQLiteLedger) CountByQuarantineReason() ([]pixarr.Count, error) {
	counts, err := s.counts(`SELECT quarantine_reason, COUNT(*) FROM binaries
		WHERE state = 'quarantine' GROUP BY quarantine_reason ORDER BY quarantine_reason`)
	if err != nil {
		return nil, fmt.Errorf("counting by quarantine reason: %w", err)
	}
	return counts, nil
}

// ListContentClusters returns every content digest shared by more than one
// binary, members oldest first.
func (s *SQLiteLedger) ListContentClusters() ([]*pixarr.ContentCluster, error) {
	rows, err := s.db.Query(`
		SELECT content_digest, id FROM binaries
		WHERE content_digest IN (SELECT content_digest FROM v_content_clusters)
		ORDER BY content_digest, added_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing content clusters: %w", err)
	}
	defer rows.Close()

	var clusters []*pixarr.ContentCluster
	for rows.Next() {
		var digest, id string
		if err := rows.Scan(&digest, &id); err != nil {
			return nil, fmt.Errorf("listing content clusters: %w", err)
		}
		if n := len(clusters); n == 0 || clusters[n-1].ContentDigest != digest {
			clusters = append(clusters, &pixarr.ContentCluster{ContentDigest: digest})
		}
		last := clusters[len(clusters)-1]
		last.BinaryIDs = append(last.BinaryIDs, id)
	}
	return clusters, rows.Err()
}

// ledgerChecks are consistency queries; each counts offending rows.
var ledgerChecks = []struct {
	name  string
	query string
}{
	{
		name:  "placed_without_canonical_path",
		query: `SELECT COUNT(*) FROM binaries WHERE state IN ('review', 'library') AND canonical_path IS NULL`,
	},
	{
		name:  "canonical_path_outside_review_library",
		query: `SELECT COUNT(*) FROM binaries WHERE canonical_path IS NOT NULL AND state NOT IN ('review', 'library')`,
	},
	{
		name:  "quarantine_reason_mismatch",
		query: `SELECT COUNT(*) FROM binaries WHERE (state = 'quarantine') != (quarantine_reason IS NOT NULL)`,
	},
	{
		name: "shared_canonical_path",
		query: `SELECT COUNT(*) FROM (SELECT canonical_path FROM binaries
			WHERE canonical_path IS NOT NULL GROUP BY canonical_path HAVING COUNT(*) > 1)`,
	},
	{
		name:  "deleted_without_timestamp",
		query: `SELECT COUNT(*) FROM binaries WHERE state = 'deleted' AND deleted_at IS NULL`,
	},
	{
		name:  "binary_without_sighting",
		query: `SELECT COUNT(*) FROM binaries b WHERE NOT EXISTS (SELECT 1 FROM sightings s WHERE s.binary_id = b.id)`,
	},
	{
		name:  "open_batches",
		query: `SELECT COUNT(*) FROM batches WHERE finished_at IS NULL`,
	},
}

func (s *SQLiteLedger) RunChecks() ([]pixarr.CheckResult, error) {
	results := make([]pixarr.CheckResult, 0, len(ledgerChecks))
	for _, c := range ledgerChecks {
		var n int64
		if err := s.db.QueryRow(c.query).Scan(&n); err != nil {
			return nil, fmt.Errorf("running check %s: %w", c.name, err)
		}
		results = append(results, pixarr.CheckResult{Name: c.name, Count: n})
	}
	return results, nil
}
