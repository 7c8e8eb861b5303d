package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"agency-portal/internal/config"
	"agency-portal/pkg/database"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

const usage = `
Agency Portal - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Run all migrations (SQL + GORM)
  status      Show database connection status
  reset       Drop all tables and re-run migrations (DANGEROUS)

Flags:
  -migrations string   Path to migrations directory (default "migrations")

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
  go run cmd/migrate/main.go reset
`

func main() {
	migrationsDir := flag.String("migrations", "migrations", "Path to migrations directory")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	command := flag.Arg(0)

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch command {
	case "up":
		runMigrationsUp(db, *migrationsDir)
	case "status":
		showStatus(db)
	case "reset":
		runReset(db, *migrationsDir)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(db *gorm.DB, migrationsDir string) {
	log.Println("Running migrations...")
	if err := database.RunFullMigration(db, migrationsDir); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func showStatus(db *gorm.DB) {
	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	tables := []string{"rooms", "room_participants", "messages", "message_attachments"}
	for _, table := range tables {
		exists, err := database.TableExists(db, table)
		if err != nil {
			log.Printf("Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			count, _ := database.TableCount(db, table)
			log.Printf("Table %-20s exists (%d rows)", table, count)
		} else {
			log.Printf("Table %-20s does not exist", table)
		}
	}
}

func runReset(db *gorm.DB, migrationsDir string) {
	log.Println("WARNING: dropping all tables and re-running migrations")
	if err := database.DropAllTables(db); err != nil {
		log.Fatalf("Failed to drop tables: %v", err)
	}
	if err := database.RunFullMigration(db, migrationsDir); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Database reset completed")
}
