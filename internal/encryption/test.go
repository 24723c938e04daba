package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"pixarr-go/internal/pixarr"
)

var testHeader = []byte("PXENC\x00\x00\x00")

var errNotTestSnapshot = errors.New("not a test-encrypted snapshot")

// TestEncryptor frames snapshots with testHeader instead of encrypting them.
// It needs no key files. Tests only.
type TestEncryptor struct {
	passphrase string // set by Setup; empty accepts any passphrase
}

var _ pixarr.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, io.MultiReader(bytes.NewReader(testHeader), r)); err != nil {
		return fmt.Errorf("framing snapshot: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (pixarr.DecryptionContext, error) {
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, fmt.Errorf("wrong passphrase")
	}
	return testDecryptor{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

type testDecryptor struct{}

func (testDecryptor) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil || !bytes.Equal(header, testHeader) {
		return errNotTestSnapshot
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("unframing snapshot: %w", err)
	}
	return nil
}
