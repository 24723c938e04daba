package testutil

import (
	"crypto/sha256"
	"encoding/hex"

	"pixarr-go/internal/pixarr"
)

// Digest returns the binary digest the ledger records for data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RecordID returns the binary record id the ledger assigns to data.
func RecordID(data []byte) string {
	return pixarr.BinaryID(Digest(data))
}
