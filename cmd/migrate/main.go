package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/Sibikrish3000/cr-agent/internal/config"
	"github.com/Sibikrish3000/cr-agent/internal/repository/sqldb"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	target := cfg.Database.Path
	if cfg.Database.Driver != string(sqldb.SQLite) {
		target = fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	}
	fmt.Printf("Connecting to %s database at %s...\n", cfg.Database.Driver, target)

	db, err := sqldb.NewDB(context.Background(), cfg.Database)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()

	if err := sqldb.RunMigrations(db); err != nil {
		fmt.Printf("⚠️  Migration failed: %v\n", err)
		return
	}
	fmt.Println("✅ Migrations applied successfully")
}
