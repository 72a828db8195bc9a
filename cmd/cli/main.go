package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/app"
	"github.com/dvloznov/farm-ledger/internal/backup"
	"github.com/dvloznov/farm-ledger/internal/config"
	"github.com/dvloznov/farm-ledger/internal/gcsuploader"
	"github.com/dvloznov/farm-ledger/internal/logger"
	"github.com/dvloznov/farm-ledger/internal/mirror"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "audit":
		runAudit(log)
	case "export":
		runExport(log)
	case "backup":
		runBackup(log)
	case "rebuild-livestock":
		runRebuildLivestock(log)
	case "init-mirror":
		runInitMirror(log)
	case "fetch-backup":
		runFetchBackup(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Farm Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  audit              Replay the ledger and report balance drift")
	fmt.Println("  export             Write the ledger workbook to a local file")
	fmt.Println("  backup             Upload the ledger workbook to BACKUP_BUCKET now")
	fmt.Println("  rebuild-livestock  Rebuild the herd summary from the movement log")
	fmt.Println("  init-mirror        Create the BigQuery mirror table")
	fmt.Println("  fetch-backup       Download a backup workbook from GCS")
	fmt.Println("  help               Show this help message")
	fmt.Println("\nConfiguration is read from the environment and .env, as for the bot.")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

// setup loads the configuration and returns a context carrying the logger.
func setup(log zerolog.Logger, timeout time.Duration) (config.Config, context.Context, context.CancelFunc) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return cfg, logger.WithContext(ctx, log), cancel
}

func openBooks(ctx context.Context, cfg config.Config, log zerolog.Logger) *app.Books {
	books, err := app.OpenBooks(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open spreadsheet")
	}
	return books
}

func runAudit(log zerolog.Logger) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	cfg, ctx, cancel := setup(log, 2*time.Minute)
	defer cancel()

	books := openBooks(ctx, cfg, log)
	audit, err := books.Ledger.Reconcile(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Audit failed")
	}

	fmt.Println("\n=== Ledger Audit ===")
	fmt.Printf("Rows counted:  %d\n", audit.Counted)
	fmt.Printf("Rows ignored:  %d\n", audit.Ignored)
	fmt.Printf("Balance:       %s\n", audit.Replayed.StringFixed(2))
	fmt.Printf("Sheet balance: %s\n", audit.Running.StringFixed(2))
	fmt.Printf("Drift:         %s\n", audit.Drift().StringFixed(2))
	fmt.Println()
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dir := fs.String("dir", ".", "Directory to write the workbook to")
	fs.Parse(os.Args[2:])

	cfg, ctx, cancel := setup(log, 2*time.Minute)
	defer cancel()

	books := openBooks(ctx, cfg, log)
	today := civil.DateOf(time.Now().In(cfg.Timezone))

	name, data, err := backup.NewBuilder(books.Ledger, books.Livestock).Build(ctx, today)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	path := filepath.Join(*dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write workbook")
	}

	fmt.Printf("Wrote %s (%d bytes)\n", path, len(data))
}

func runBackup(log zerolog.Logger) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	bucket := fs.String("bucket", "", "GCS bucket name (defaults to BACKUP_BUCKET)")
	fs.Parse(os.Args[2:])

	cfg, ctx, cancel := setup(log, 5*time.Minute)
	defer cancel()

	if *bucket == "" {
		*bucket = cfg.BackupBucket
	}
	if *bucket == "" {
		log.Fatal().Msg("Usage: cli backup -bucket NAME (or set BACKUP_BUCKET)")
	}

	books := openBooks(ctx, cfg, log)

	storage, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storage.Close()

	job := backup.NewJob(backup.NewBuilder(books.Ledger, books.Livestock), storage, *bucket, cfg.Timezone, nil)
	uri, err := job.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Backup failed")
	}

	fmt.Printf("Uploaded %s\n", uri)
}

func runRebuildLivestock(log zerolog.Logger) {
	fs := flag.NewFlagSet("rebuild-livestock", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Print the replayed herd without writing the summary")
	fs.Parse(os.Args[2:])

	cfg, ctx, cancel := setup(log, 2*time.Minute)
	defer cancel()

	books := openBooks(ctx, cfg, log)

	if *dryRun {
		entries, skipped, err := books.Livestock.Replay(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Replay failed")
		}
		fmt.Printf("\n=== Replayed Herd (%d entries, %d log rows skipped) ===\n", len(entries), skipped)
		for _, e := range entries {
			fmt.Printf("  %s %s: %d\n", e.Animal, e.Breed, e.Count)
		}
		fmt.Println()
		return
	}

	entries, err := books.Livestock.Rebuild(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Rebuild failed")
	}
	fmt.Printf("Livestock summary rebuilt with %d entries.\n", len(entries))
}

func runInitMirror(log zerolog.Logger) {
	fs := flag.NewFlagSet("init-mirror", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	cfg, ctx, cancel := setup(log, 2*time.Minute)
	defer cancel()

	if cfg.BigQueryProject == "" || cfg.BigQueryDataset == "" {
		log.Fatal().Msg("BIGQUERY_PROJECT and BIGQUERY_DATASET are required")
	}

	sink, err := mirror.NewBigQuerySink(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer sink.Close()

	if err := sink.EnsureTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create mirror table")
	}

	fmt.Println("BigQuery mirror table is ready.")
}

func runFetchBackup(log zerolog.Logger) {
	fs := flag.NewFlagSet("fetch-backup", flag.ExitOnError)
	gcsURI := fs.String("gcs-uri", "", "GCS URI of the backup workbook")
	dir := fs.String("dir", ".", "Directory to write the workbook to")
	fs.Parse(os.Args[2:])

	if *gcsURI == "" {
		log.Fatal().Msg("Error: --gcs-uri is required")
	}
	if _, _, err := gcsuploader.ParseGCSURI(*gcsURI); err != nil {
		log.Fatal().Err(err).Msg("Invalid GCS URI")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	storage, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storage.Close()

	data, err := storage.FetchFromGCS(ctx, *gcsURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Download failed")
	}

	path := filepath.Join(*dir, gcsuploader.ExtractFilenameFromGCSURI(*gcsURI))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write workbook")
	}

	fmt.Printf("Wrote %s (%d bytes)\n", path, len(data))
}
