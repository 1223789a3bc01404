package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	name string
	sql  string
}

// RunMigrations applies every embedded migrations/*.sql file not yet
// recorded in the _migrations table, in file name order.
func RunMigrations(db *DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS _migrations (
			name TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := appliedMigrations(db.DB)
	if err != nil {
		return fmt.Errorf("getting applied migrations: %w", err)
	}

	pending, err := loadMigrations(migrationsFS)
	if err != nil {
		return fmt.Errorf("reading migration files: %w", err)
	}

	for _, m := range pending {
		if applied[m.name] {
			continue
		}
		if err := db.Transaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.sql); err != nil {
				return fmt.Errorf("executing SQL: %w", err)
			}
			_, err := tx.Exec("INSERT INTO _migrations (name) VALUES (?)", m.name)
			return err
		}); err != nil {
			return fmt.Errorf("applying migration %s: %w", m.name, err)
		}
		log.Printf("Migration applied: %s", m.name)
	}

	return nil
}

func appliedMigrations(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT name FROM _migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		out = append(out, migration{name: path.Base(name), sql: string(content)})
	}
	return out, nil
}
