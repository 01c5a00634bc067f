package objects

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteRepository stores trained objects in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) objects.db in dataDir and runs pending
// migrations. Pass ":memory:" for an in-memory database.
func OpenSQLite(dataDir string) (*SQLiteRepository, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "objects.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// One connection: required for :memory: and avoids "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	if _, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := r.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := r.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// Load returns saved objects ordered by when they were first trained.
func (r *SQLiteRepository) Load(ctx context.Context) ([]Object, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.name, o.trained_at, s.description
		FROM objects o
		JOIN samples s ON s.object_name = o.name
		ORDER BY o.position, s.seq`)
	if err != nil {
		return nil, fmt.Errorf("querying objects: %w", err)
	}
	defer rows.Close()

	var out []Object
	for rows.Next() {
		var (
			name    string
			trained int64
			desc    string
		)
		if err := rows.Scan(&name, &trained, &desc); err != nil {
			return nil, fmt.Errorf("scanning object: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Name != name {
			out = append(out, Object{Name: name, TrainedAt: time.Unix(0, trained)})
		}
		last := &out[len(out)-1]
		last.Samples = append(last.Samples, desc)
	}
	return out, rows.Err()
}

// Save writes obj, replacing any earlier samples. A re-trained object keeps
// its original position.
func (r *SQLiteRepository) Save(ctx context.Context, obj Object) error {
	if len(obj.Samples) == 0 {
		return ErrEmptyObject
	}
	trained := obj.TrainedAt
	if trained.IsZero() {
		trained = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO objects (name, position, trained_at)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM objects), ?)
		ON CONFLICT(name) DO UPDATE SET trained_at = excluded.trained_at`,
		obj.Name, trained.UnixNano()); err != nil {
		return fmt.Errorf("saving object %q: %w", obj.Name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM samples WHERE object_name = ?", obj.Name); err != nil {
		return fmt.Errorf("clearing samples for %q: %w", obj.Name, err)
	}
	for i, desc := range obj.Samples {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO samples (object_name, seq, description) VALUES (?, ?, ?)",
			obj.Name, i, desc); err != nil {
			return fmt.Errorf("saving sample %d for %q: %w", i, obj.Name, err)
		}
	}
	return tx.Commit()
}

// Delete removes the object and its samples.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM samples WHERE object_name = ?", name); err != nil {
		return fmt.Errorf("deleting samples for %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM objects WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting object %q: %w", name, err)
	}
	return tx.Commit()
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

var _ Repository = (*SQLiteRepository)(nil)
