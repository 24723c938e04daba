package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pixarr-go/internal/config"
	"pixarr-go/internal/encryption"
	"pixarr-go/internal/fs"
	"pixarr-go/internal/pixarr"
)

const (
	snapshotPrefix = "pixarr-"
	snapshotExt    = ".sqlite3"
	encryptedExt   = ".age"
	snapshotLayout = "20060102T150405Z"
)

// Snapshotter copies the ledger into the snapshot directory after write
// batches, encrypting the copy when an Encryptor is configured, and keeps
// only the newest copies.
type Snapshotter struct {
	ledger pixarr.Ledger
	dir    string
	keep   int
	enc    pixarr.Encryptor // nil stores plaintext copies
	clock  pixarr.Clock
}

func NewSnapshotter(ledger pixarr.Ledger, cfg config.SnapshotConfig, enc pixarr.Encryptor, clock pixarr.Clock) *Snapshotter {
	return &Snapshotter{ledger: ledger, dir: cfg.Dir, keep: cfg.Keep, enc: enc, clock: clock}
}

// Take writes one snapshot and prunes old ones. It returns the snapshot path.
func (s *Snapshotter) Take() (string, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	dest := filepath.Join(s.dir, snapshotPrefix+s.clock.Now().UTC().Format(snapshotLayout)+snapshotExt)

	if s.enc == nil {
		if err := s.ledger.BackupTo(dest); err != nil {
			return "", err
		}
		return dest, s.prune()
	}

	tmpDir, err := os.MkdirTemp(s.dir, ".snapshot-*")
	if err != nil {
		return "", fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	raw := filepath.Join(tmpDir, filepath.Base(dest))
	if err := s.ledger.BackupTo(raw); err != nil {
		return "", err
	}
	dest += encryptedExt
	if err := s.encryptFile(raw, dest); err != nil {
		return "", err
	}
	return dest, s.prune()
}

func (s *Snapshotter) encryptFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening ledger copy: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if err := s.enc.Encrypt(in, out); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	return nil
}

// List returns the snapshot paths, oldest first.
func (s *Snapshotter) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, snapshotPrefix) {
			continue
		}
		if strings.HasSuffix(name, snapshotExt) || strings.HasSuffix(name, snapshotExt+encryptedExt) {
			paths = append(paths, filepath.Join(s.dir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Snapshotter) prune() error {
	if s.keep <= 0 {
		return nil
	}
	paths, err := s.List()
	if err != nil {
		return err
	}
	for len(paths) > s.keep {
		if err := os.Remove(paths[0]); err != nil {
			return fmt.Errorf("pruning snapshot: %w", err)
		}
		paths = paths[1:]
	}
	return nil
}

// RestoreSnapshot writes the ledger contained in snapshot src to dest, which
// must not exist. Encrypted snapshots need enc and the key passphrase.
func RestoreSnapshot(src, dest string, enc pixarr.Encryptor, passphrase string) error {
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("refusing to overwrite %s", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	if !strings.HasSuffix(src, encryptedExt) {
		return fs.CopyFileVerified(src, dest)
	}
	if enc == nil {
		return fmt.Errorf("%s is encrypted but snapshot encryption is not configured", src)
	}

	dctx, err := enc.Unlock(passphrase)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if err := dctx.Decrypt(in, out); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("decrypting snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("closing %s: %w", dest, err)
	}
	return nil
}

// InitKeys creates the snapshot key pair configured in cfg.
func InitKeys(cfg config.EncryptionConfig, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg)
	if err != nil {
		return err
	}
	if enc == nil {
		return fmt.Errorf("snapshot encryption is disabled (snapshot.encryption.type = %q)", cfg.Type)
	}
	return enc.Setup(passphrase)
}
