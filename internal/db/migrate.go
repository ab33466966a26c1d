package db

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/diewo77/go-quotes/internal/config"
	"github.com/diewo77/go-quotes/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the database drivers and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Quote{},
		&models.QuoteItem{},
		&models.QuoteVersion{},
		&models.QuoteVersionItem{},
	}
}

// Migrate creates or updates the schema with gorm's AutoMigrate.
func Migrate(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	for _, table := range []string{"users", "quotes", "quote_items", "quote_versions", "quote_version_items"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// MigrateSQL applies the SQL migrations under dir/<driver> with golang-migrate.
func MigrateSQL(cfg config.DatabaseConfig, dir string) error {
	driver := "postgres"
	if cfg.Driver == "sqlite" {
		driver = "sqlite"
	}
	src := "file://" + filepath.ToSlash(filepath.Join(dir, driver))

	m, err := migrate.New(src, cfg.URL())
	if err != nil {
		return fmt.Errorf("init migrations from %s: %w", src, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
