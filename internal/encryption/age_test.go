package encryption

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"pixarr-go/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	return NewAgeEncryptor(config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "keys", "pixarr.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "pixarr.key"),
	})
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
	if err := e.Setup(""); err == nil {
		t.Error("Setup(\"\") should reject an empty passphrase")
	}
	if err := e.Setup("test-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}
	if err := e.Setup("another"); !errors.Is(err, ErrKeysExist) {
		t.Errorf("second Setup() error = %v, want ErrKeysExist", err)
	}
}

func TestAgeEncryptor_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	const passphrase = "correct horse battery staple"

	e := newTestAgeEncryptor(t)
	if err := e.Setup(passphrase); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	snapshot := bytes.Repeat([]byte("SQLite format 3\x00"), 4096)
	var encrypted bytes.Buffer
	if err := e.Encrypt(bytes.NewReader(snapshot), &encrypted); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Contains(encrypted.Bytes(), []byte("SQLite format 3")) {
		t.Error("encrypted snapshot contains plaintext")
	}

	if _, err := e.Unlock("wrong passphrase"); err == nil {
		t.Error("Unlock() with wrong passphrase should return error")
	}
	dctx, err := e.Unlock(passphrase)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var decrypted bytes.Buffer
	if err := dctx.Decrypt(&encrypted, &decrypted); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(decrypted.Bytes(), snapshot) {
		t.Errorf("round-trip failed: got %d bytes, want %d bytes", decrypted.Len(), len(snapshot))
	}
}

func TestAgeEncryptor_BeforeSetup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	var buf bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("data")), &buf); err == nil {
		t.Error("Encrypt() before Setup should return error")
	}
	if _, err := e.Unlock("passphrase"); err == nil {
		t.Error("Unlock() before Setup should return error")
	}
}

func TestTestEncryptor(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()
	if err := e.Setup("secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	var encrypted bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("ledger")), &encrypted); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !bytes.HasPrefix(encrypted.Bytes(), testHeader) {
		t.Error("encrypted output does not start with test header")
	}

	if _, err := e.Unlock("other"); err == nil {
		t.Error("Unlock() accepted a different passphrase")
	}
	dctx, err := e.Unlock("secret")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var out bytes.Buffer
	if err := dctx.Decrypt(bytes.NewReader(encrypted.Bytes()), &out); err != nil || out.String() != "ledger" {
		t.Errorf("Decrypt() = %q, %v", out.String(), err)
	}
	if err := dctx.Decrypt(bytes.NewReader([]byte("PX")), &out); err == nil {
		t.Error("Decrypt() with truncated header should return error")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		typ     string
		wantNil bool
		wantErr bool
	}{
		{"none", true, false},
		{"", true, false},
		{"age", false, false},
		{"test", false, false},
		{"rot13", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			got, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: tt.typ})
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if (got == nil) != tt.wantNil {
				t.Errorf("encryptor = %v, wantNil %v", got, tt.wantNil)
			}
		})
	}
}
