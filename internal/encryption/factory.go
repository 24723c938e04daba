package encryption

import (
	"fmt"

	"pixarr-go/internal/config"
	"pixarr-go/internal/pixarr"
)

// NewEncryptorFromConfig creates the snapshot Encryptor for the configured
// type. It returns nil for "none": snapshots are then stored in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (pixarr.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
