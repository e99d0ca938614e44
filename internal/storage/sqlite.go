package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SQLiteStorage implements Store using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single connection serializes writers; saves never interleave.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Debugw("opened index database", "path", dbPath, "mode", BuildMode)
	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Project index operations

func (s *SQLiteStorage) Load(ctx context.Context, key string) ([]string, error) {
	return s.loadWithQuerier(ctx, s.db, key)
}

func (s *SQLiteStorage) loadWithQuerier(ctx context.Context, q querier, key string) ([]string, error) {
	query := `
		SELECT b.fingerprint
		FROM project_blobs b
		JOIN projects p ON p.id = b.project_id
		WHERE p.root_path = ?
		ORDER BY b.position
	`
	rows, err := q.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load project index: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fps []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		fps = append(fps, fp)
	}
	return fps, rows.Err()
}

// Save replaces the fingerprint list of key inside one transaction.
func (s *SQLiteStorage) Save(ctx context.Context, key string, fingerprints []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := s.saveWithQuerier(ctx, tx, key, fingerprints); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project index: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) saveWithQuerier(ctx context.Context, q querier, key string, fingerprints []string) error {
	now := time.Now().UTC()
	upsert := `
		INSERT INTO projects (root_path, blob_count, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(root_path) DO UPDATE SET
			blob_count = excluded.blob_count,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, upsert, key, len(fingerprints), now, now, now); err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}

	var projectID int64
	if err := q.QueryRowContext(ctx, "SELECT id FROM projects WHERE root_path = ?", key).Scan(&projectID); err != nil {
		return fmt.Errorf("failed to read project id: %w", err)
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM project_blobs WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("failed to clear project index: %w", err)
	}

	for i, fp := range fingerprints {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO project_blobs (project_id, position, fingerprint) VALUES (?, ?, ?)",
			projectID, i, fp); err != nil {
			return fmt.Errorf("failed to insert fingerprint %d: %w", i, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT root_path, blob_count, last_indexed_at
		FROM projects
		ORDER BY root_path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ProjectSummary
	for rows.Next() {
		var (
			p         ProjectSummary
			indexedAt sql.NullTime
		)
		if err := rows.Scan(&p.Key, &p.Blobs, &indexedAt); err != nil {
			return nil, err
		}
		if indexedAt.Valid {
			p.UpdatedAt = indexedAt.Time
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Alias operations

func (s *SQLiteStorage) ResolveAlias(ctx context.Context, alias string) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx, "SELECT root_path FROM aliases WHERE name = ?", alias).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("alias %q: %w", alias, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve alias: %w", err)
	}
	return key, nil
}

func (s *SQLiteStorage) SetAlias(ctx context.Context, alias, key string) error {
	query := `
		INSERT INTO aliases (name, root_path, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			root_path = excluded.root_path,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, alias, key, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set alias: %w", err)
	}
	return nil
}
