package main

import (
	"fmt"
	"os"

	"github.com/stackwatch/stackwatch/internal/config"
	"github.com/stackwatch/stackwatch/internal/repository/sqldb"
	"github.com/stackwatch/stackwatch/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := sqldb.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Connected to database successfully")

	if err := sqldb.RunMigrations(db, migrations.GetFS()); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("All migrations completed successfully")
}
