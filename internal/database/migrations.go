package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed migrations/*/*.sql
var migrationFiles embed.FS

// RunMigrations executes the embedded migrations for the connection's dialect
// and returns the filenames applied by this call.
func (db *DB) RunMigrations(ctx context.Context) ([]string, error) {
	return db.RunMigrationsFS(ctx, migrationFiles, path.Join("migrations", db.Dialect.MigrationsSubdir()))
}

// RunMigrationsFS executes every *.sql file in dir of fsys that has not run yet,
// in filename order.
func (db *DB) RunMigrationsFS(ctx context.Context, fsys fs.FS, dir string) ([]string, error) {
	if _, err := db.ExecContext(ctx, db.Dialect.CreateMigrationsTableQuery()); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)

	var applied []string
	for _, file := range files {
		filename := path.Base(file)

		hasRun, err := db.hasMigrationRun(ctx, filename)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration status: %w", err)
		}
		if hasRun {
			continue
		}

		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		// Raw Exec: migration bodies carry no placeholders to rewrite
		if _, err := db.DB.ExecContext(ctx, string(content)); err != nil {
			return applied, fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO migrations (filename) VALUES (?)", filename); err != nil {
			return applied, fmt.Errorf("failed to record migration %s: %w", filename, err)
		}
		applied = append(applied, filename)
	}

	return applied, nil
}

// hasMigrationRun checks if a migration has already been executed
func (db *DB) hasMigrationRun(ctx context.Context, filename string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE filename = ?", filename).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
