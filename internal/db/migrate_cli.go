package db

import (
	"fmt"
	"log"
	"strconv"
)

// RunMigrateCommand handles the "migrate" subcommand: up, down, status or
// force <version>.
func RunMigrateCommand(args []string, dbPath string) error {
	if len(args) < 1 {
		PrintMigrateHelp()
		return fmt.Errorf("missing migrate action")
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	migrations := MigrationsFS()

	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		log.Println("All migrations applied")
	case "down":
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
		log.Println("Rolled back one migration")
	case "status":
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: siklink migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := database.MigrateForce(migrations, version); err != nil {
			return err
		}
	case "help":
		PrintMigrateHelp()
		return nil
	default:
		PrintMigrateHelp()
		return fmt.Errorf("unknown migrate action %q", action)
	}

	version, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	fmt.Printf("Current version: %d (dirty: %v)\n", version, dirty)
	if dirty {
		fmt.Println("A migration failed part way through; inspect the database and run: siklink migrate force <version>")
	}
	return nil
}

// PrintMigrateHelp prints usage for the migrate subcommand.
func PrintMigrateHelp() {
	fmt.Println(`Usage: siklink migrate <action>

Actions:
  up               apply all pending migrations
  down             roll back the most recent migration
  status           print the current schema version
  force <version>  record <version> without running migrations
  help             show this message`)
}
