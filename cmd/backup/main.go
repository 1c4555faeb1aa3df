package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"weddingrsvp/internal/config"
	"weddingrsvp/internal/database"
	"weddingrsvp/internal/logging"
	"weddingrsvp/internal/repository"
	"weddingrsvp/internal/service"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	csvCmd := flag.NewFlagSet("import-csv", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")

	csvFile := csvCmd.String("file", "data.csv", "CSV file with a header row naming guest columns")
	csvChunk := csvCmd.Int("chunk-size", service.DefaultChunkSize, "Number of rows written per transaction")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.RunMigrations(ctx); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	backupService := service.NewBackupService(db,
		repository.NewGuestRepository(db),
		repository.NewChangeLogRepository(db),
		repository.NewEventRepository(db),
		logger,
	)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		err = handleExport(ctx, backupService, logger, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		err = handleImport(ctx, backupService, logger, *importInput, *importClear)

	case "import-csv":
		csvCmd.Parse(os.Args[2:])
		err = handleImportCSV(ctx, backupService, logger, *csvFile, *csvChunk)

	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Fatal(os.Args[1]+" failed", zap.Error(err))
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, logger *zap.Logger, outputPath string) error {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if _, err := backupService.ExportToWriter(ctx, file); err != nil {
		return err
	}

	if info, err := file.Stat(); err == nil {
		logger.Info("export complete",
			zap.String("file", outputPath),
			zap.Float64("size_mb", float64(info.Size())/1024/1024),
		)
	}
	return nil
}

func handleImport(ctx context.Context, backupService *service.BackupService, logger *zap.Logger, inputPath string, clearData bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	if clearData {
		fmt.Print("WARNING: This will delete all guests, change log entries and events. Type 'yes' to confirm: ")
		confirmation, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(confirmation) != "yes" {
			logger.Info("import cancelled")
			return nil
		}
	}

	summary, err := backupService.ImportFromReader(ctx, file, clearData)
	if err != nil {
		return err
	}
	logger.Info("import complete",
		zap.String("file", inputPath),
		zap.Int("guests_created", summary.GuestsCreated),
		zap.Int("guests_updated", summary.GuestsUpdated),
		zap.Int("changes_added", summary.ChangesAdded),
	)
	return nil
}

func handleImportCSV(ctx context.Context, backupService *service.BackupService, logger *zap.Logger, path string, chunkSize int) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("CSV file not found: %w", err)
	}
	defer file.Close()

	summary, err := backupService.ImportCSV(ctx, file, chunkSize)
	if err != nil {
		return err
	}
	logger.Info("csv import complete",
		zap.String("file", path),
		zap.Int("imported", summary.GuestsCreated+summary.GuestsUpdated),
		zap.Int("batches", summary.Batches),
	)
	return nil
}

func printUsage() {
	fmt.Println("Wedding RSVP Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]       Export guests, change log and events to JSON")
	fmt.Println("  backup import [options]       Import a JSON backup")
	fmt.Println("  backup import-csv [options]   Import guests from a CSV file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>       Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>        Input file path (required)")
	fmt.Println("  -clear               Clear existing data before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Import CSV Options:")
	fmt.Println("  -file <file>         CSV file path (default: data.csv)")
	fmt.Println("  -chunk-size <n>      Rows per transaction (default: 500)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./wedding.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
