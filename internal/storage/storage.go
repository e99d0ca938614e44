package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrUnknownBackend is returned by Open for an unsupported backend name
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Supported backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// IndexStore persists the ordered fingerprint list of each project.
// Keys are normalized absolute project paths.
type IndexStore interface {
	// Load returns the stored list for key. A key that was never saved
	// yields an empty list and a nil error.
	Load(ctx context.Context, key string) ([]string, error)
	// Save replaces the stored list for key. Entries for other keys are
	// never affected.
	Save(ctx context.Context, key string, fingerprints []string) error
	// ListProjects summarizes every stored project.
	ListProjects(ctx context.Context) ([]ProjectSummary, error)
	Close() error
}

// AliasStore maps short names to project keys.
type AliasStore interface {
	ResolveAlias(ctx context.Context, alias string) (string, error)
	SetAlias(ctx context.Context, alias, key string) error
}

// Store combines both persistence concerns.
type Store interface {
	IndexStore
	AliasStore
}

// ProjectSummary describes one stored project index.
type ProjectSummary struct {
	Key       string    `json:"key"`
	Blobs     int       `json:"blobs"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Config selects and configures a Store.
type Config struct {
	Backend   string // sqlite or json
	DataDir   string // directory holding the database or JSON files
	CacheSize int    // LRU entries; 0 disables caching
}

// Open creates the configured Store.
func Open(cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.Backend) {
	case BackendSQLite, "":
		s, err = NewSQLiteStorage(filepath.Join(cfg.DataDir, "index.db"))
	case BackendJSON:
		s, err = NewJSONStore(cfg.DataDir)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		cached, err := NewCachedStore(s, cfg.CacheSize)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		return cached, nil
	}
	return s, nil
}
