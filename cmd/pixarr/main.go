package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pixarr-go/internal/app"
	"pixarr-go/internal/config"
	"pixarr-go/internal/encryption"
	"pixarr-go/internal/pixarr"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a PixarrApp. The caller must defer a.Close().
func newApp(command string, access app.Access) (*app.PixarrApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.NewPixarrApp(cfg, command, access)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// closeApp folds the Close error into the command error.
func closeApp(a *app.PixarrApp, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func printCounts(key string, counts []pixarr.Count) {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Key, strconv.FormatInt(c.Count, 10)})
	}
	printTable(os.Stdout, []string{key, "COUNT"}, rows, []columnAlignment{alignLeft, alignRight})
}

func printResult(res *pixarr.BatchResult) {
	if res.Batch == nil {
		fmt.Println("Nothing to do.")
		return
	}
	fmt.Printf("%-8s %s  %s  %s\n", res.Batch.Source, shortID(res.Batch.ID), res.Batch.Mode, res.Stats.Summary())
}

var rootCmd = &cobra.Command{
	Use:          "pixarr",
	Short:        "Photo and video ingest ledger",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration and create the media tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["data_dir"])
		cfg.LogDir = defaults["log_dir"]
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		for _, source := range cfg.Sources() {
			root, err := cfg.StagingRoot(source)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(root, 0o755); err != nil {
				return fmt.Errorf("creating staging root: %w", err)
			}
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		fmt.Printf("Media:    %s\n", cfg.MediaDir())
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("# Configuration from %s\n\n", defaults["config_path"])
		var m config.Manager
		return m.Write(os.Stdout, cfg)
	},
}

// ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [SOURCE...]",
	Short: "Classify staged files; dry run unless --write",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		req := app.IngestRequest{Sources: args}
		req.Write, _ = cmd.Flags().GetBool("write")
		req.Note, _ = cmd.Flags().GetString("note")
		req.AllowFilenameDates, _ = cmd.Flags().GetBool("allow-filename-dates")
		req.AllowFileDates, _ = cmd.Flags().GetBool("allow-file-dates")
		req.DupReviewPolicy, _ = cmd.Flags().GetString("dup-review-policy")

		a, err := newApp("ingest", app.Exclusive)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		ctx, stop := signalContext()
		defer stop()

		results, err := a.Ingest(ctx, req)
		for _, res := range results {
			printResult(res)
		}
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No staging roots found.")
		}
		if !req.Write && a.DryRunDefault() {
			fmt.Println("Dry run: no files were moved. Rerun with --write to apply.")
		}
		return nil
	},
}

var retryFailedCmd = &cobra.Command{
	Use:   "retry-failed",
	Short: "Retry placement of files in Quarantine/move_failed",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		write, _ := cmd.Flags().GetBool("write")
		note, _ := cmd.Flags().GetString("note")

		a, err := newApp("retry-failed", app.Exclusive)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		ctx, stop := signalContext()
		defer stop()

		res, err := a.RetryMoveFailed(ctx, write, note)
		if res != nil {
			printResult(res)
		}
		return err
	},
}

// report commands
var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List recent batches",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("batches", app.ReadOnly)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		batches, err := a.Batches(limit)
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			fmt.Println("No batches recorded.")
			return nil
		}

		rows := make([][]string, 0, len(batches))
		for _, b := range batches {
			finished := "open"
			if !b.FinishedAt.IsZero() {
				finished = b.FinishedAt.Sub(b.StartedAt).Truncate(time.Millisecond).String()
			}
			rows = append(rows, []string{b.ID, b.Source, b.Mode, humanize.Time(b.StartedAt), finished, b.Summary, b.Notes})
		}
		printTable(os.Stdout, []string{"ID", "SOURCE", "MODE", "STARTED", "DURATION", "SUMMARY", "NOTE"}, rows, nil)
		return nil
	},
}

var batchItemsCmd = &cobra.Command{
	Use:   "batch-items BATCH",
	Short: "List every file seen by a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("batch-items", app.ReadOnly)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		batch, items, err := a.BatchItems(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Batch %s (%s, %s) started %s\n", batch.ID, batch.Source, batch.Mode, formatTime(batch.StartedAt))
		rows := make([][]string, 0, len(items))
		for _, s := range items {
			rows = append(rows, []string{string(s.Disposition), s.Filename, s.FolderHint, shortID(s.BinaryID), s.Detail})
		}
		printTable(os.Stdout, []string{"DISPOSITION", "FILE", "FOLDER", "BINARY", "DETAIL"}, rows, nil)
		return nil
	},
}

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "Count records by state",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("states", app.ReadOnly)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		counts, err := a.States()
		if err != nil {
			return err
		}
		printCounts("STATE", counts)
		return nil
	},
}

var reasonsCmd = &cobra.Command{
	Use:   "reasons",
	Short: "Count quarantined records by reason",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("reasons", app.ReadOnly)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		counts, err := a.Reasons()
		if err != nil {
			return err
		}
		printCounts("REASON", counts)
		return nil
	},
}

var quarantinedCmd = &cobra.Command{
	Use:   "quarantined",
	Short: "List quarantined records",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("quarantined", app.ReadOnly)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		recs, err := a.Quarantined(limit)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, []string{shortID(r.ID), string(r.QuarantineReason), r.Ext, humanize.Bytes(uint64(r.Bytes)), humanize.Time(r.UpdatedAt)})
		}
		printTable(os.Stdout, []string{"ID", "REASON", "EXT", "SIZE", "UPDATED"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List the review queue by capture time",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("review", app.ReadOnly)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		recs, err := a.Review(limit)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, []string{formatTime(r.TakenAt), r.TakenSource, humanize.Bytes(uint64(r.Bytes)), filepath.Base(r.CanonicalPath)})
		}
		printTable(os.Stdout, []string{"TAKEN", "SOURCE", "SIZE", "FILE"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
		return nil
	},
}

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "List binaries that share decoded pixels",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("clusters", app.ReadOnly)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		clusters, err := a.Clusters()
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(clusters))
		for _, c := range clusters {
			rows = append(rows, []string{shortID(c.ContentDigest), strconv.Itoa(len(c.BinaryIDs)), strings.Join(c.BinaryIDs, ",")})
		}
		printTable(os.Stdout, []string{"CONTENT", "BINARIES", "IDS"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft})
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run ledger consistency checks",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("check", app.ReadOnly)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		results, err := a.Check()
		if err != nil {
			return err
		}
		var issues int64
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			issues += r.Count
			rows = append(rows, []string{r.Name, strconv.FormatInt(r.Count, 10)})
		}
		printTable(os.Stdout, []string{"CHECK", "COUNT"}, rows, []columnAlignment{alignLeft, alignRight})
		if issues > 0 {
			return fmt.Errorf("ledger check found %d issue(s)", issues)
		}
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the ledger schema",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("schema", app.ReadOnly)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		schema, err := a.Schema()
		if err != nil {
			return err
		}
		fmt.Println(schema)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending ledger migrations",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("migrate", app.Maintenance)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.Migrate(); err != nil {
			return err
		}
		fmt.Println("Ledger schema is up to date.")
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage snapshot encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the snapshot key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		passphrase, err := readPassphrase("Passphrase", true)
		if err != nil {
			return err
		}
		if err := app.InitKeys(cfg.Snapshot.Encryption, passphrase); err != nil {
			return err
		}
		fmt.Printf("Public key:  %s\n", cfg.Snapshot.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Snapshot.Encryption.PrivateKeyPath)
		return nil
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage ledger snapshots",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger snapshots, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		paths, err := app.NewSnapshotter(nil, cfg.Snapshot, nil, nil).List()
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(paths))
		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil {
				return err
			}
			rows = append(rows, []string{filepath.Base(p), humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime())})
		}
		printTable(os.Stdout, []string{"SNAPSHOT", "SIZE", "TAKEN"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft})
		return nil
	},
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore FILE DEST",
	Short: "Restore a ledger snapshot to a new file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		enc, err := encryption.NewEncryptorFromConfig(cfg.Snapshot.Encryption)
		if err != nil {
			return err
		}

		var passphrase string
		if enc != nil && strings.HasSuffix(args[0], ".age") {
			if passphrase, err = readPassphrase("Passphrase", false); err != nil {
				return err
			}
		}
		if err := app.RestoreSnapshot(args[0], args[1], enc, passphrase); err != nil {
			return err
		}
		fmt.Printf("Restored %s to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// ingest
	ingestCmd.Flags().Bool("write", false, "Move files; without it the run is a dry run")
	ingestCmd.Flags().String("note", "", "Note stored on each batch")
	ingestCmd.Flags().Bool("allow-filename-dates", false, "Fall back to dates parsed from file names")
	ingestCmd.Flags().Bool("allow-file-dates", false, "Fall back to filesystem timestamps")
	ingestCmd.Flags().String("dup-review-policy", "", "Override duplicates.in_review (ignore, quarantine, delete)")
	retryFailedCmd.Flags().Bool("write", false, "Move files; without it the run is a dry run")
	retryFailedCmd.Flags().String("note", "", "Note stored on the batch")

	// reports
	batchesCmd.Flags().IntP("limit", "n", 20, "Maximum number of batches to show")
	quarantinedCmd.Flags().IntP("limit", "n", 50, "Maximum number of records to show")
	reviewCmd.Flags().IntP("limit", "n", 50, "Maximum number of records to show")

	// keys and snapshots
	keysCmd.AddCommand(keysInitCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(retryFailedCmd)
	rootCmd.AddCommand(batchesCmd)
	rootCmd.AddCommand(batchItemsCmd)
	rootCmd.AddCommand(statesCmd)
	rootCmd.AddCommand(reasonsCmd)
	rootCmd.AddCommand(quarantinedCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(clustersCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(snapshotCmd)
}
