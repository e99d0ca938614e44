package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	projectsFile = "projects.json"
	aliasesFile  = "aliases.json"
)

// JSONStore keeps the index in two flat files inside a data directory:
// projects.json maps keys to fingerprint lists, aliases.json maps alias
// names to keys. Every write is a load-merge-replace under one mutex.
type JSONStore struct {
	dir string
	mu  sync.Mutex
}

// NewJSONStore creates the data directory if needed.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) Load(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := readJSONMap[[]string](filepath.Join(s.dir, projectsFile))
	if err != nil {
		return nil, err
	}
	return projects[key], nil
}

func (s *JSONStore) Save(ctx context.Context, key string, fingerprints []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, projectsFile)
	projects, err := readJSONMap[[]string](path)
	if err != nil {
		return err
	}
	if fingerprints == nil {
		fingerprints = []string{}
	}
	projects[key] = fingerprints
	return writeJSONAtomic(path, projects)
}

func (s *JSONStore) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, projectsFile)
	projects, err := readJSONMap[[]string](path)
	if err != nil {
		return nil, err
	}

	var modTime time.Time
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime()
	}

	out := make([]ProjectSummary, 0, len(projects))
	for k, fps := range projects {
		out = append(out, ProjectSummary{Key: k, Blobs: len(fps), UpdatedAt: modTime})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *JSONStore) ResolveAlias(ctx context.Context, alias string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	aliases, err := readJSONMap[string](filepath.Join(s.dir, aliasesFile))
	if err != nil {
		return "", err
	}
	key, ok := aliases[alias]
	if !ok {
		return "", fmt.Errorf("alias %q: %w", alias, ErrNotFound)
	}
	return key, nil
}

func (s *JSONStore) SetAlias(ctx context.Context, alias, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, aliasesFile)
	aliases, err := readJSONMap[string](path)
	if err != nil {
		return err
	}
	aliases[alias] = key
	return writeJSONAtomic(path, aliases)
}

func (s *JSONStore) Close() error { return nil }

// readJSONMap treats a missing or empty file as an empty map.
func readJSONMap[V any](path string) (map[string]V, error) {
	out := make(map[string]V)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// writeJSONAtomic writes to a temp file in the same directory and renames
// it over the target, so readers never see a partial file.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Some platforms refuse to rename over an existing file.
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			_ = os.Remove(tmpPath)
			return err
		}
		if err := os.Rename(tmpPath, path); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}
