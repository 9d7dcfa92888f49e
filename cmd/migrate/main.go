package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/estatehub/backend/internal/infrastructure/config"
	"github.com/estatehub/backend/internal/infrastructure/logger"
	"github.com/estatehub/backend/internal/infrastructure/migration"
)

func main() {
	var (
		dir      string
		logLevel string
	)
	flag.StringVar(&dir, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	command := args[0]

	lcfg := logger.DefaultConfig()
	lcfg.Level = logLevel
	lcfg.TimeFormat = time.DateTime
	log, err := logger.New(lcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// create and list work on the filesystem only
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Usage: migrate create <name> [description]")
		}
		target := dir
		if target == "" {
			target = "migrations"
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(target, args[1], description, time.Now())
		if err != nil {
			log.Fatal("Create migration failed", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up", mf.UpPath),
			zap.String("down", mf.DownPath),
		)
		return
	case "list":
		listMigrations(log, dir)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Load configuration failed", zap.Error(err))
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatal("Versioned migrations require postgres; sqlite is auto-migrated at startup",
			zap.String("driver", cfg.Database.Driver))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Open database failed", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Ping database failed", zap.Error(err))
	}

	m, err := migration.New(db, dir, log)
	if err != nil {
		log.Fatal("Create migrator failed", zap.Error(err))
	}
	defer m.Close()

	if err := run(m, log, command, args[1:]); err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func run(m *migration.Migrator, log *zap.Logger, command string, args []string) error {
	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
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
			return fmt.Errorf("version must be positive")
		}
		return m.GoTo(uint(n))
	case "force":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(n)
	case "version":
		st, err := m.Status()
		if err != nil {
			return err
		}
		if !st.Applied {
			log.Info("No migrations applied")
			return nil
		}
		log.Info("Current version", zap.Uint("version", st.Version), zap.Bool("dirty", st.Dirty))
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func listMigrations(log *zap.Logger, dir string) {
	if dir == "" {
		versions, err := migration.EmbeddedVersions()
		if err != nil {
			log.Fatal("Read embedded migrations failed", zap.Error(err))
		}
		for _, v := range versions {
			fmt.Printf("  %06d\n", v)
		}
		return
	}
	found, err := migration.ListMigrations(dir)
	if err != nil {
		log.Fatal("List migrations failed", zap.Error(err))
	}
	for _, mig := range found {
		suffix := ""
		if !mig.HasDown {
			suffix = " (no down file)"
		}
		fmt.Printf("  %s%s\n", mig, suffix)
	}
}

func intArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing numeric argument")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	return n, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `EstateHub schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Revert all migrations
  step <n>              Apply n migrations (negative reverts)
  goto <version>        Migrate to a specific version
  version               Show the applied version
  force <version>       Mark a version as applied (clears dirty state)
  create <name> [desc]  Create the next numbered migration pair
  list                  List known migrations

Flags:
  -path string          Migrations directory (default: embedded set; ./migrations for create)
  -log-level string     debug, info, warn, error (default: info)

Database settings come from config.toml and ESTATE_DATABASE_* variables.`)
}
