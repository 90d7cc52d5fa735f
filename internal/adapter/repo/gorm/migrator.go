package gormrepo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

const migrationsTable = "schema_migrations"

// ApplyMigrations runs the *.sql files of dir in lexical order, each once.
func ApplyMigrations(ctx context.Context, db *gorm.DB, dir string) error {
	return ApplyMigrationsFS(ctx, db, os.DirFS(dir))
}

func ApplyMigrationsFS(ctx context.Context, db *gorm.DB, fsys fs.FS) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (
  version TEXT PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`
	if err := db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("create %s: %w", migrationsTable, err)
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		version := strings.TrimSuffix(path.Base(name), ".sql")
		applied, err := migrationApplied(ctx, db, version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(string(content)).Error; err != nil {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
			return tx.Exec(`INSERT INTO `+migrationsTable+`(version, applied_at) VALUES (?, ?)`, version, time.Now().UTC()).Error
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func migrationApplied(ctx context.Context, db *gorm.DB, version string) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Table(migrationsTable).Where("version = ?", version).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	return count > 0, nil
}
