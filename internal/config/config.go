package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for pixarr.
type Config struct {
	DataDir     string            `toml:"data_dir"`
	LogDir      string            `toml:"log_dir"`
	LogLevel    string            `toml:"log_level"` // "debug", "info" (default), "warn", "error"
	Database    DatabaseConfig    `toml:"database"`
	Staging     StagingConfig     `toml:"staging"`
	Ext         ExtConfig         `toml:"ext"`
	Filesystem  FilesystemConfig  `toml:"filesystem"`
	Quarantine  QuarantineConfig  `toml:"quarantine"`
	Dates       DatesConfig       `toml:"dates"`
	Duplicates  DuplicatesConfig  `toml:"duplicates"`
	Ingest      IngestConfig      `toml:"ingest"`
	Metadata    MetadataConfig    `toml:"metadata"`
	Fingerprint FingerprintConfig `toml:"fingerprint"`
	Snapshot    SnapshotConfig    `toml:"snapshot"`
}

// DatabaseConfig represents configuration for the ledger database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type string `toml:"type"`           // "sqlite" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=sqlite
}

// StagingConfig maps source labels to staging roots.
// Relative roots are resolved against <data_dir>/media/Staging.
type StagingConfig struct {
	Roots map[string]string `toml:"roots"`
}

// ExtConfig lists the supported media extensions by family.
type ExtConfig struct {
	Image []string `toml:"image"`
	Video []string `toml:"video"`
	Raw   []string `toml:"raw"`
}

// FilesystemConfig holds the clutter patterns used while walking staging roots.
type FilesystemConfig struct {
	Junk       []string `toml:"junk"`
	IgnoreDirs []string `toml:"ignore_dirs"`
}

// QuarantineConfig holds one toggle per quarantine reason. A disabled reason
// leaves the file where it was found.
type QuarantineConfig struct {
	Junk            bool `toml:"junk"`
	UnsupportedExt  bool `toml:"unsupported_ext"`
	StatError       bool `toml:"stat_error"`
	ZeroBytes       bool `toml:"zero_bytes"`
	MissingDatetime bool `toml:"missing_datetime"`
	MoveFailed      bool `toml:"move_failed"`
}

// DatesConfig enables the optional capture-time fallbacks.
type DatesConfig struct {
	AllowFilename   bool `toml:"allow_filename"`
	AllowFilesystem bool `toml:"allow_filesystem"`
}

// DuplicatesConfig holds the action ("ignore", "quarantine" or "delete") per duplicate kind.
type DuplicatesConfig struct {
	InLibrary string `toml:"in_library"`
	InReview  string `toml:"in_review"`
	Content   string `toml:"content"`
}

type IngestConfig struct {
	DryRun bool `toml:"dry_run"`
}

// MetadataConfig configures embedded-metadata extraction.
type MetadataConfig struct {
	Exiftool       string `toml:"exiftool"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	NativeFallback bool   `toml:"native_fallback"`
}

// FingerprintConfig bounds the work spent on content digests.
type FingerprintConfig struct {
	// MaxPixels skips the content digest of images declaring more pixels
	// than this. 0 means no limit.
	MaxPixels int64 `toml:"max_pixels"`
}

// SnapshotConfig controls the ledger copies taken after write batches.
type SnapshotConfig struct {
	Enabled    bool             `toml:"enabled"`
	Dir        string           `toml:"dir"`
	Keep       int              `toml:"keep"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// EncryptionConfig holds paths to the age key pair used for snapshot encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age", "none" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// DefaultSources are the staging roots created by config init.
var DefaultSources = []string{"pc", "other", "icloud", "sdcard"}

// NewConfig creates a new Config rooted at dataDir with default settings.
func NewConfig(dataDir string) *Config {
	roots := make(map[string]string, len(DefaultSources))
	for _, s := range DefaultSources {
		roots[s] = s
	}
	return &Config{
		DataDir:  dataDir,
		LogDir:   filepath.Join(dataDir, "log"),
		LogLevel: "info",
		Database: DatabaseConfig{Type: "sqlite", Path: filepath.Join(dataDir, "db", "app.sqlite3")},
		Staging:  StagingConfig{Roots: roots},
		Ext: ExtConfig{
			Image: []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".gif", ".webp", ".heic", ".heif", ".avif"},
			Video: []string{".mp4", ".mov", ".m4v", ".avi", ".webm", ".mkv"},
			Raw:   []string{".dng", ".cr2", ".cr3", ".nef", ".arw", ".raf", ".rw2", ".orf", ".srw"},
		},
		Filesystem: FilesystemConfig{
			Junk:       []string{".DS_Store", "Thumbs.db", "desktop.ini", "._*"},
			IgnoreDirs: []string{".Spotlight-V100", ".fseventsd", ".Trashes", ".TemporaryItems", "._*"},
		},
		Quarantine: QuarantineConfig{
			Junk:            true,
			UnsupportedExt:  true,
			StatError:       true,
			ZeroBytes:       true,
			MissingDatetime: true,
			MoveFailed:      true,
		},
		Duplicates: DuplicatesConfig{
			InLibrary: "quarantine",
			InReview:  "ignore",
			Content:   "quarantine",
		},
		Ingest: IngestConfig{DryRun: true},
		Metadata: MetadataConfig{
			Exiftool:       "exiftool",
			TimeoutSeconds: 20,
			NativeFallback: true,
		},
		Fingerprint: FingerprintConfig{MaxPixels: 100_000_000},
		Snapshot: SnapshotConfig{
			Enabled: true,
			Dir:     filepath.Join(dataDir, "snapshots"),
			Keep:    10,
			Encryption: EncryptionConfig{
				Type:           "none",
				PublicKeyPath:  filepath.Join(dataDir, "keys", "pixarr.pub"),
				PrivateKeyPath: filepath.Join(dataDir, "keys", "pixarr.key"),
			},
		},
	}
}

// MediaDir returns the root of the Staging/Review/Library/Quarantine tree.
func (c *Config) MediaDir() string {
	return filepath.Join(c.DataDir, "media")
}

// StagingRoot returns the absolute staging directory for a source label.
func (c *Config) StagingRoot(label string) (string, error) {
	root, ok := c.Staging.Roots[label]
	if !ok {
		return "", fmt.Errorf("unknown staging source: %s", label)
	}
	if filepath.IsAbs(root) {
		return root, nil
	}
	return filepath.Join(c.MediaDir(), "Staging", root), nil
}

// Sources returns the configured source labels in sorted order.
func (c *Config) Sources() []string {
	labels := make([]string, 0, len(c.Staging.Roots))
	for label := range c.Staging.Roots {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// SupportedExt returns the union of all extension families, lowercased with a leading dot.
func (c *Config) SupportedExt() []string {
	var out []string
	for _, group := range [][]string{c.Ext.Image, c.Ext.Video, c.Ext.Raw} {
		for _, e := range group {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			out = append(out, e)
		}
	}
	return out
}

// Validate checks values that cannot be expressed through TOML types alone.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	for name, policy := range map[string]string{
		"duplicates.in_library": c.Duplicates.InLibrary,
		"duplicates.in_review":  c.Duplicates.InReview,
		"duplicates.content":    c.Duplicates.Content,
	} {
		switch policy {
		case "ignore", "quarantine", "delete":
		default:
			return fmt.Errorf("%s: unknown policy %q (want ignore, quarantine or delete)", name, policy)
		}
	}
	for label, root := range c.Staging.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("staging root for %q is empty", label)
		}
	}
	if len(c.SupportedExt()) == 0 {
		return fmt.Errorf("no supported extensions configured")
	}
	if c.Metadata.TimeoutSeconds < 0 {
		return fmt.Errorf("metadata.timeout_seconds must not be negative")
	}
	if c.Fingerprint.MaxPixels < 0 {
		return fmt.Errorf("fingerprint.max_pixels must not be negative")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Keys missing from the
// document keep their default values.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := NewConfig("")
	defaultRoots := cfg.Staging.Roots
	cfg.Staging.Roots = nil // decoding merges into an existing map
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("failed to decode config: data_dir is required")
	}
	if cfg.Staging.Roots == nil {
		cfg.Staging.Roots = defaultRoots
	}
	cfg.deriveFromDataDir(md)
	return cfg, nil
}

// deriveFromDataDir fills paths that default to locations under data_dir
// when the document did not set them explicitly.
func (c *Config) deriveFromDataDir(md toml.MetaData) {
	if !md.IsDefined("log_dir") {
		c.LogDir = filepath.Join(c.DataDir, "log")
	}
	if !md.IsDefined("database", "path") {
		c.Database.Path = filepath.Join(c.DataDir, "db", "app.sqlite3")
	}
	if !md.IsDefined("snapshot", "dir") {
		c.Snapshot.Dir = filepath.Join(c.DataDir, "snapshots")
	}
	if !md.IsDefined("snapshot", "encryption", "public_key_path") {
		c.Snapshot.Encryption.PublicKeyPath = filepath.Join(c.DataDir, "keys", "pixarr.pub")
	}
	if !md.IsDefined("snapshot", "encryption", "private_key_path") {
		c.Snapshot.Encryption.PrivateKeyPath = filepath.Join(c.DataDir, "keys", "pixarr.key")
	}
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
