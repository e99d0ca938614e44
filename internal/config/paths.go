package config

import (
	"fmt"
	"path/filepath"
)

// NormalizePath returns the absolute, symlink-resolved form of p with
// forward slashes. It is the canonical project key.
func NormalizePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return filepath.ToSlash(resolved), nil
}
