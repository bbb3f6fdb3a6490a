package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/invoicing/backend/internal/infrastructure/migration"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (default: ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	dir, err := resolveMigrationsPath(migrationsPath)
	if err != nil {
		log.Fatal("Failed to resolve migrations path", zap.Error(err))
	}

	if err := run(args, dir, log); err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

var errUsage = errors.New("invalid usage")

func run(args []string, dir string, log *zap.Logger) error {
	command := args[0]
	log.Info("Migration CLI started", zap.String("command", command), zap.String("migrations_path", dir))

	// create and list only touch the filesystem
	switch command {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("%w: create <name>", errUsage)
		}
		mf, err := migration.CreateMigration(dir, args[1], time.Now())
		if err != nil {
			return err
		}
		log.Info("Migration created",
			zap.Uint("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath))
		return nil
	case "list":
		files, err := migration.ListMigrations(dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Println(f.BaseName())
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		return runSQLite(command, &cfg.Database, log)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, dir, log)
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "goto":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: version must not be negative", errUsage)
		}
		return m.GoTo(uint(n))
	case "force":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(n)
	case "version", "status":
		status, err := m.Status()
		if err != nil {
			return err
		}
		log.Info("Schema status",
			zap.Uint("version", status.Version),
			zap.Bool("dirty", status.Dirty),
			zap.Int("pending", len(status.Pending)))
		for _, f := range status.Pending {
			fmt.Println("pending:", f.BaseName())
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// runSQLite creates the development schema from the persistence models
func runSQLite(command string, cfg *config.DatabaseConfig, log *zap.Logger) error {
	if command != "up" {
		return fmt.Errorf("%w: only up is supported for sqlite", errUsage)
	}
	db, err := persistence.NewDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("SQLite schema migrated", zap.String("path", cfg.SQLitePath))
	return nil
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%w: %s <n>", errUsage, args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[1])
	}
	return n, nil
}

// resolveMigrationsPath falls back to ./migrations, then to the directory two
// levels above the executable
func resolveMigrationsPath(path string) (string, error) {
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if exe, err := os.Executable(); err == nil {
				candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsPath)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	return filepath.Abs(path)
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Invoicing schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                Apply all pending migrations (sqlite: create tables from models)
  down              Roll back all migrations
  steps <n>         Apply n migrations, negative n rolls back
  goto <version>    Migrate up or down to version
  version, status   Show the applied version and pending files
  force <version>   Record version without running it, clearing the dirty flag
  create <name>     Write the next numbered up/down pair
  list              List migration files

Flags:
  -path string       Migrations directory (default ./migrations)
  -log-level string  debug, info, warn or error (default info)

Database settings come from config.toml and INVOICING_DATABASE_* variables.
`)
}
