package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bimakw/volume-tracker/internal/application/services"
	"github.com/bimakw/volume-tracker/internal/config"
	"github.com/bimakw/volume-tracker/internal/infrastructure/database"
	"github.com/bimakw/volume-tracker/internal/infrastructure/legacy"
	"github.com/bimakw/volume-tracker/internal/reconcile"
)

// migrate imports the legacy JSON document into PostgreSQL
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	source := cfg.Migrate.Source
	if len(os.Args) > 1 {
		source = os.Args[1]
	}

	logger.Info("Starting legacy import", zap.String("source", source))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	doc, err := legacy.ReadFile(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("No legacy document found, nothing to import", zap.String("source", source))
			return
		}
		logger.Fatal("Failed to read legacy document", zap.Error(err))
	}

	// Connect to database
	db, err := database.NewPostgresDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	reportingLoc, _ := cfg.Schedule.ReportingLocation()
	importer := services.NewImportService(database.NewTokenRepo(db.DB()), reconcile.NewClock(reportingLoc), logger)

	result, err := importer.Import(ctx, doc)
	if err != nil {
		logger.Fatal("Legacy import failed", zap.Error(err))
	}

	logger.Info("Legacy import completed",
		zap.Int("tokens_migrated", result.Migrated()),
		zap.Int("tokens_created", result.Created),
		zap.Int("tokens_refreshed", result.Refreshed),
		zap.Int("history_entries", result.HistoryEntries),
		zap.Int("skipped_entries", result.SkippedEntries),
	)

	backup, err := legacy.Backup(source, time.Now())
	if err != nil {
		logger.Fatal("Failed to back up legacy document", zap.Error(err))
	}
	logger.Info("Legacy document backed up", zap.String("backup", backup))
}

func setupLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encoding := "json"
	if format == "console" {
		encoding = "console"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	return logger
}
