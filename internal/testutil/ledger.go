package testutil

import (
	"testing"

	"pixarr-go/internal/database"
	"pixarr-go/internal/pixarr"
)

// NewTestLedger creates an in-memory ledger with the schema migrated.
// It is closed when the test completes.
func NewTestLedger(t *testing.T, clock pixarr.Clock) pixarr.Ledger {
	t.Helper()

	l, err := database.NewSQLiteLedger(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	if err := l.Migrate(); err != nil {
		l.Close()
		t.Fatalf("failed to migrate ledger: %v", err)
	}

	t.Cleanup(func() {
		l.Close()
	})
	return l
}
