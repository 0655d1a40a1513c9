package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yusakitchen/reviewboard/internal/database"
)

func main() {
	// Configure zerolog for pretty console output
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse command line flags
	var (
		command       string
		steps         int
		migrationsDir string
		databaseURL   string
		driver        string
	)

	flag.StringVar(&command, "command", "up", "Migration command: up, down, force, version, drop")
	flag.IntVar(&steps, "steps", 0, "Number of migrations to run (0 = all)")
	flag.StringVar(&migrationsDir, "dir", "", "Path to a migrations directory (default: embedded migrations)")
	flag.StringVar(&databaseURL, "database", "", "Database URL (overrides DATABASE_URL env)")
	flag.StringVar(&driver, "driver", "", "Database driver: postgres or sqlite (overrides DATABASE_DRIVER env)")
	flag.Parse()

	_ = godotenv.Load()

	if driver == "" {
		driver = os.Getenv("DATABASE_DRIVER")
	}
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "sqlite" {
		log.Fatal().Str("driver", driver).Msg("Unknown database driver")
	}

	// Get database URL from environment if not provided
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		log.Fatal().Msg("DATABASE_URL environment variable or -database flag is required")
	}

	// sqlite paths become URLs for the migrate sqlite driver
	if driver == "sqlite" && !strings.HasPrefix(databaseURL, "sqlite://") {
		databaseURL = "sqlite://" + databaseURL
	}

	m, source, err := newMigrate(driver, migrationsDir, databaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrate instance")
	}

	log.Info().
		Str("source", source).
		Str("driver", driver).
		Str("command", command).
		Int("steps", steps).
		Msg("Starting migration")

	defer m.Close()

	// Execute command
	switch command {
	case "up":
		err = runUp(m, steps)
	case "down":
		err = runDown(m, steps)
	case "force":
		if steps == 0 {
			log.Fatal().Msg("Force command requires -steps flag with version number")
		}
		err = m.Force(steps)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			if verr == migrate.ErrNilVersion {
				log.Info().Msg("No migrations have been applied yet")
				return
			}
			log.Fatal().Err(verr).Msg("Failed to get version")
		}
		log.Info().
			Uint("version", version).
			Bool("dirty", dirty).
			Msg("Current migration version")
		return
	case "drop":
		err = m.Drop()
	default:
		log.Fatal().Str("command", command).Msg("Unknown command")
	}

	if err != nil {
		if err == migrate.ErrNoChange {
			log.Info().Msg("No migrations to apply")
			return
		}
		log.Fatal().Err(err).Msg("Migration failed")
	}

	log.Info().Msg("Migration completed successfully")
}

// newMigrate reads migrations from dir when given, otherwise from the embedded set
func newMigrate(driver, dir, databaseURL string) (*migrate.Migrate, string, error) {
	if dir != "" {
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return nil, "", fmt.Errorf("failed to get absolute path for migrations directory: %w", err)
		}
		sourceURL := fmt.Sprintf("file://%s", absPath)
		m, err := migrate.New(sourceURL, databaseURL)
		return m, sourceURL, err
	}

	src, err := database.Source(driver)
	if err != nil {
		return nil, "", err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	return m, "embedded:" + driver, err
}

func runUp(m *migrate.Migrate, steps int) error {
	if steps > 0 {
		return m.Steps(steps)
	}
	return m.Up()
}

func runDown(m *migrate.Migrate, steps int) error {
	if steps > 0 {
		return m.Steps(-steps)
	}
	return m.Down()
}
