package config

import (
	"fmt"
	"os"
	"path/filepath"

	logging "github.com/ipfs/go-log/v2"
)

// SetupLogging routes every subsystem logger to stderr and, when file is
// non-empty, to that file as well. Stdout stays free for MCP stdio.
func SetupLogging(level, file string) error {
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, level)
	}

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	logging.SetupLogging(logging.Config{
		Format: logging.PlaintextOutput,
		Stderr: true,
		File:   file,
		Level:  lvl,
	})
	return nil
}
