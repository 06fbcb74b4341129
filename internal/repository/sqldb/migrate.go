package sqldb

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed migrations
var migrations embed.FS

// RunMigrations applies the embedded meeting schema for the connection's dialect
func RunMigrations(db *DB) error {
	source, err := iofs.New(migrations, "migrations/"+string(db.Dialect))
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	var driver database.Driver
	switch db.Dialect {
	case Postgres:
		driver, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	case MySQL:
		driver, err = migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	default:
		driver, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(db.Dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Str("dialect", string(db.Dialect)).Msg("Database migration: no changes")
			return nil
		}
		return fmt.Errorf("failed to run migrate up: %w", err)
	}

	log.Info().Str("dialect", string(db.Dialect)).Msg("Database migration: success")
	return nil
}
