// Package config loads ctxmirror settings from a YAML file in the user's
// home, then applies .env, environment and command-line overrides in that
// order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/ctxmirror/internal/backend"
	"github.com/dshills/ctxmirror/internal/collector"
	"github.com/dshills/ctxmirror/internal/storage"
	"github.com/dshills/ctxmirror/internal/uploader"
)

const (
	RootDirName      = ".ctxmirror"
	SettingsFileName = "settings.yaml"
	LogFileName      = "ctxmirror.log"

	// HomeEnv relocates the whole settings directory.
	HomeEnv = "CTXMIRROR_HOME"

	DefaultBaseURL = "https://api.example.com"
	DefaultToken   = "your-token-here"
	DefaultBind    = "127.0.0.1:8888"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Index   IndexConfig   `yaml:"index"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Watch   WatchConfig   `yaml:"watch"`
	Log     LogConfig     `yaml:"log"`

	// rootDir is where settings, data and logs live; not serialized.
	rootDir string
}

type BackendConfig struct {
	BaseURL                  string        `yaml:"base_url"`
	Token                    string        `yaml:"token"`
	UploadTimeout            time.Duration `yaml:"upload_timeout"`
	RetrievalTimeout         time.Duration `yaml:"retrieval_timeout"`
	MaxOutputLength          int           `yaml:"max_output_length"`
	DisableCodebaseRetrieval bool          `yaml:"disable_codebase_retrieval"`
	EnableCommitRetrieval    bool          `yaml:"enable_commit_retrieval"`
}

type IndexConfig struct {
	BatchSize        int      `yaml:"batch_size"`
	MaxLinesPerBlob  int      `yaml:"max_lines_per_blob"`
	TextExtensions   []string `yaml:"text_extensions"`
	ExcludePatterns  []string `yaml:"exclude_patterns"`
	GlobalIgnoreFile string   `yaml:"global_ignore_file,omitempty"`
	Workers          int      `yaml:"workers,omitempty"`
}

type StoreConfig struct {
	Backend   string `yaml:"backend"` // sqlite | json
	CacheSize int    `yaml:"cache_size"`
}

type ServerConfig struct {
	Transport string `yaml:"transport"` // stdio | http
	Bind      string `yaml:"bind"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the settings written on first run.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:          DefaultBaseURL,
			Token:            DefaultToken,
			UploadTimeout:    backend.DefaultUploadTimeout,
			RetrievalTimeout: backend.DefaultRetrievalTimeout,
		},
		Index: IndexConfig{
			BatchSize:        uploader.DefaultBatchSize,
			MaxLinesPerBlob:  collector.DefaultMaxLines,
			TextExtensions:   append([]string(nil), collector.DefaultExtensions...),
			ExcludePatterns:  append([]string(nil), collector.DefaultExclude...),
			GlobalIgnoreFile: collector.DefaultGlobalIgnoreFile(),
		},
		Store: StoreConfig{
			Backend:   storage.BackendSQLite,
			CacheSize: 64,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Bind:      DefaultBind,
		},
		Watch: WatchConfig{Debounce: 500 * time.Millisecond},
		Log:   LogConfig{Level: "info"},
	}
}

// Overrides carries command-line values. Empty fields are ignored.
type Overrides struct {
	BaseURL  string
	Token    string
	LogLevel string
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	RootDir   string // defaults to $CTXMIRROR_HOME or ~/.ctxmirror
	EnvFile   string // defaults to .env in the working directory
	Overrides Overrides
}

// Load reads the settings file, creating it with defaults when missing,
// and applies overrides. The result is validated.
func Load(opts LoadOptions) (*Config, error) {
	root, err := resolveRootDir(opts.RootDir)
	if err != nil {
		return nil, err
	}

	cfg, err := readOrCreate(root)
	if err != nil {
		return nil, err
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyOverrides(opts.Overrides)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveRootDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home dir: %w", err)
	}
	return filepath.Join(home, RootDirName), nil
}

func readOrCreate(root string) (*Config, error) {
	path := filepath.Join(root, SettingsFileName)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		cfg.rootDir = root
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.rootDir = root
	return &cfg, nil
}

// applyDefaults fills zero values left by older or hand-edited files.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Backend.UploadTimeout <= 0 {
		c.Backend.UploadTimeout = d.Backend.UploadTimeout
	}
	if c.Backend.RetrievalTimeout <= 0 {
		c.Backend.RetrievalTimeout = d.Backend.RetrievalTimeout
	}
	if c.Index.TextExtensions == nil {
		c.Index.TextExtensions = d.Index.TextExtensions
	}
	if c.Index.ExcludePatterns == nil {
		c.Index.ExcludePatterns = d.Index.ExcludePatterns
	}
	if c.Store.Backend == "" {
		c.Store.Backend = d.Store.Backend
	}
	if c.Server.Transport == "" {
		c.Server.Transport = d.Server.Transport
	}
	if c.Server.Bind == "" {
		c.Server.Bind = d.Server.Bind
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = d.Watch.Debounce
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

func (c *Config) applyOverrides(o Overrides) {
	if o.BaseURL != "" {
		c.Backend.BaseURL = o.BaseURL
	}
	if o.Token != "" {
		c.Backend.Token = o.Token
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
}

// Validate checks values that would break indexing.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("%w: backend.base_url is required", ErrInvalidConfig)
	}
	if c.Index.BatchSize < 1 {
		return fmt.Errorf("%w: index.batch_size must be >= 1", ErrInvalidConfig)
	}
	if c.Index.MaxLinesPerBlob < 1 {
		return fmt.Errorf("%w: index.max_lines_per_blob must be >= 1", ErrInvalidConfig)
	}
	switch c.Store.Backend {
	case storage.BackendSQLite, storage.BackendJSON:
	default:
		return fmt.Errorf("%w: store.backend must be sqlite or json", ErrInvalidConfig)
	}
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("%w: server.transport must be stdio or http", ErrInvalidConfig)
	}
	return nil
}

// Save writes the settings file.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.rootDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.SettingsPath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) RootDir() string      { return c.rootDir }
func (c *Config) SettingsPath() string { return filepath.Join(c.rootDir, SettingsFileName) }
func (c *Config) DataDir() string      { return filepath.Join(c.rootDir, "data") }
func (c *Config) LogDir() string       { return filepath.Join(c.rootDir, "log") }
func (c *Config) LogFile() string      { return filepath.Join(c.LogDir(), LogFileName) }

// ProjectsFile and AliasesFile are used by the json store backend.
func (c *Config) ProjectsFile() string { return filepath.Join(c.DataDir(), "projects.json") }
func (c *Config) AliasesFile() string  { return filepath.Join(c.DataDir(), "aliases.json") }

// DatabaseFile is used by the sqlite store backend.
func (c *Config) DatabaseFile() string { return filepath.Join(c.DataDir(), "index.db") }

// CollectorOptions maps index settings onto the collector.
func (c *Config) CollectorOptions() collector.Options {
	return collector.Options{
		Extensions:       c.Index.TextExtensions,
		MaxLines:         c.Index.MaxLinesPerBlob,
		Exclude:          c.Index.ExcludePatterns,
		GlobalIgnoreFile: c.Index.GlobalIgnoreFile,
		Workers:          c.Index.Workers,
	}
}

// BackendClientConfig maps backend settings onto the HTTP client.
func (c *Config) BackendClientConfig(userAgent string) backend.Config {
	return backend.Config{
		BaseURL:                  c.Backend.BaseURL,
		Token:                    c.Backend.Token,
		UserAgent:                userAgent,
		UploadTimeout:            c.Backend.UploadTimeout,
		RetrievalTimeout:         c.Backend.RetrievalTimeout,
		MaxOutputLength:          c.Backend.MaxOutputLength,
		DisableCodebaseRetrieval: c.Backend.DisableCodebaseRetrieval,
		EnableCommitRetrieval:    c.Backend.EnableCommitRetrieval,
	}
}

// StorageConfig maps store settings onto storage.Open.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend:   c.Store.Backend,
		DataDir:   c.DataDir(),
		CacheSize: c.Store.CacheSize,
	}
}
