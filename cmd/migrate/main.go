package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	user := env.GetEnv("DB_USER", "blockfox")
	host := env.GetEnv("DB_HOST", "db")
	port := env.GetEnv("DB_PORT", "3306")
	name := env.GetEnv("DB_NAME", "blockfox_db")
	dbURL := fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true&parseTime=true",
		user, env.GetEnv("DB_PASSWORD", "blockfox"), host, port, name)

	log.Printf("Connecting to database: %s@%s:%s/%s", user, host, port, name)

	m, err := migrate.New("file://"+env.GetEnv("MIGRATIONS_PATH", "migrations"), dbURL)
	if err != nil {
		log.Fatalf("Initializing migrations failed: %v", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("Closing migration resources failed: %v, %v", sourceErr, dbErr)
		}
	}()

	switch command := os.Args[1]; command {
	case "up":
		report(m.Up(), "Migrations applied", "Nothing to do: database is up to date")

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatalf("Rolling back the last migration failed: %v", err)
		}
		log.Println("Rolled back the last migration")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatalf("Missing version number")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("Invalid version number: %v", err)
		}
		report(m.Migrate(uint(version)),
			fmt.Sprintf("Migrated to version %d", version),
			fmt.Sprintf("Nothing to do: database is already at version %d", version))

	case "status":
		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			log.Println("No migrations have been applied yet")
		case err != nil:
			log.Fatalf("Reading the migration version failed: %v", err)
		case dirty:
			log.Printf("Current migration version: %d (dirty)", version)
		default:
			log.Printf("Current migration version: %d", version)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func report(err error, done, unchanged string) {
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Println(unchanged)
	case err != nil:
		log.Fatalf("Migration failed: %v", err)
	default:
		log.Println(done)
	}
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go [command]")
	fmt.Println("Commands:")
	fmt.Println("  up     - apply all pending migrations")
	fmt.Println("  down   - roll back the last migration")
	fmt.Println("  goto N - migrate to version N")
	fmt.Println("  status - print the current migration version")
}
