package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "CTXMIRROR"

// envOverrides mirrors the overridable settings. Pointer and slice fields
// stay nil when the variable is unset, so only present values apply.
type envOverrides struct {
	BaseURL                  *string  `envconfig:"BASE_URL"`
	Token                    *string  `envconfig:"TOKEN"`
	BatchSize                *int     `envconfig:"BATCH_SIZE"`
	MaxLinesPerBlob          *int     `envconfig:"MAX_LINES_PER_BLOB"`
	TextExtensions           []string `envconfig:"TEXT_EXTENSIONS"`
	ExcludePatterns          []string `envconfig:"EXCLUDE_PATTERNS"`
	MaxOutputLength          *int     `envconfig:"MAX_OUTPUT_LENGTH"`
	DisableCodebaseRetrieval *bool    `envconfig:"DISABLE_CODEBASE_RETRIEVAL"`
	EnableCommitRetrieval    *bool    `envconfig:"ENABLE_COMMIT_RETRIEVAL"`
	StoreBackend             *string  `envconfig:"STORE_BACKEND"`
	LogLevel                 *string  `envconfig:"LOG_LEVEL"`
}

// loadDotEnv exports variables from file without overriding ones already
// set. A missing file is fine.
func loadDotEnv(file string) error {
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		return fmt.Errorf("failed to load %s: %w", file, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if env.BaseURL != nil {
		c.Backend.BaseURL = *env.BaseURL
	}
	if env.Token != nil {
		c.Backend.Token = *env.Token
	}
	if env.BatchSize != nil {
		c.Index.BatchSize = *env.BatchSize
	}
	if env.MaxLinesPerBlob != nil {
		c.Index.MaxLinesPerBlob = *env.MaxLinesPerBlob
	}
	if env.TextExtensions != nil {
		c.Index.TextExtensions = env.TextExtensions
	}
	if env.ExcludePatterns != nil {
		c.Index.ExcludePatterns = env.ExcludePatterns
	}
	if env.MaxOutputLength != nil {
		c.Backend.MaxOutputLength = *env.MaxOutputLength
	}
	if env.DisableCodebaseRetrieval != nil {
		c.Backend.DisableCodebaseRetrieval = *env.DisableCodebaseRetrieval
	}
	if env.EnableCommitRetrieval != nil {
		c.Backend.EnableCommitRetrieval = *env.EnableCommitRetrieval
	}
	if env.StoreBackend != nil {
		c.Store.Backend = *env.StoreBackend
	}
	if env.LogLevel != nil {
		c.Log.Level = *env.LogLevel
	}
	return nil
}
