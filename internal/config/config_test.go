package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noEnvFile points Load at a .env that does not exist.
func loadOpts(t *testing.T, root string) LoadOptions {
	return LoadOptions{RootDir: root, EnvFile: filepath.Join(t.TempDir(), "missing.env")}
}

func TestLoad_CreatesDefaults(t *testing.T) {
	root := filepath.Join(t.TempDir(), "home")

	cfg, err := Load(loadOpts(t, root))
	require.NoError(t, err)

	assert.FileExists(t, cfg.SettingsPath())
	assert.Equal(t, DefaultBaseURL, cfg.Backend.BaseURL)
	assert.Equal(t, 10, cfg.Index.BatchSize)
	assert.Equal(t, 800, cfg.Index.MaxLinesPerBlob)
	assert.Contains(t, cfg.Index.TextExtensions, ".go")
	assert.Contains(t, cfg.Index.ExcludePatterns, "node_modules")
	assert.Equal(t, 30*time.Second, cfg.Backend.UploadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Backend.RetrievalTimeout)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, filepath.Join(root, "data", "projects.json"), cfg.ProjectsFile())
	assert.Equal(t, filepath.Join(root, "data", "index.db"), cfg.DatabaseFile())
	assert.Equal(t, filepath.Join(root, "log", LogFileName), cfg.LogFile())
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	root := t.TempDir()
	yml := `
backend:
  base_url: https://backend.internal
  token: abc
  upload_timeout: 5s
index:
  batch_size: 3
  max_lines_per_blob: 50
  text_extensions: [".go"]
store:
  backend: json
`
	require.NoError(t, os.WriteFile(filepath.Join(root, SettingsFileName), []byte(yml), 0o600))

	cfg, err := Load(loadOpts(t, root))
	require.NoError(t, err)
	assert.Equal(t, "https://backend.internal", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.UploadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Backend.RetrievalTimeout, "missing values take defaults")
	assert.Equal(t, 3, cfg.Index.BatchSize)
	assert.Equal(t, []string{".go"}, cfg.Index.TextExtensions)
	assert.Contains(t, cfg.Index.ExcludePatterns, ".git")
	assert.Equal(t, "json", cfg.Store.Backend)
}

func TestLoad_OverridePriority(t *testing.T) {
	root := t.TempDir()
	_, err := Load(loadOpts(t, root))
	require.NoError(t, err)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CTXMIRROR_MAX_OUTPUT_LENGTH=777\n"), 0o600))

	t.Setenv("CTXMIRROR_BASE_URL", "https://from-env")
	t.Setenv("CTXMIRROR_TOKEN", "env-token")
	t.Setenv("CTXMIRROR_BATCH_SIZE", "25")
	t.Setenv("CTXMIRROR_TEXT_EXTENSIONS", ".py,.rs")
	t.Setenv("CTXMIRROR_ENABLE_COMMIT_RETRIEVAL", "true")
	t.Setenv("CTXMIRROR_MAX_OUTPUT_LENGTH", "")
	require.NoError(t, os.Unsetenv("CTXMIRROR_MAX_OUTPUT_LENGTH"))

	cfg, err := Load(LoadOptions{
		RootDir:   root,
		EnvFile:   envFile,
		Overrides: Overrides{Token: "cli-token"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://from-env", cfg.Backend.BaseURL)
	assert.Equal(t, "cli-token", cfg.Backend.Token, "cli beats env")
	assert.Equal(t, 25, cfg.Index.BatchSize)
	assert.Equal(t, []string{".py", ".rs"}, cfg.Index.TextExtensions)
	assert.True(t, cfg.Backend.EnableCommitRetrieval)
	assert.Equal(t, 777, cfg.Backend.MaxOutputLength, ".env values apply")
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("batch size", func(t *testing.T) {
		t.Setenv("CTXMIRROR_BATCH_SIZE", "0")
		_, err := Load(loadOpts(t, t.TempDir()))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("not a number", func(t *testing.T) {
		t.Setenv("CTXMIRROR_MAX_LINES_PER_BLOB", "many")
		_, err := Load(loadOpts(t, t.TempDir()))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("store backend", func(t *testing.T) {
		t.Setenv("CTXMIRROR_STORE_BACKEND", "redis")
		_, err := Load(loadOpts(t, t.TempDir()))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, SettingsFileName), []byte("backend: [\n"), 0o600))
		_, err := Load(loadOpts(t, root))
		assert.Error(t, err)
	})
}

func TestSave_PersistsOverrides(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(LoadOptions{RootDir: root, EnvFile: filepath.Join(root, "none"), Overrides: Overrides{BaseURL: "https://persisted"}})
	require.NoError(t, err)
	require.NoError(t, cfg.Save())

	again, err := Load(loadOpts(t, root))
	require.NoError(t, err)
	assert.Equal(t, "https://persisted", again.Backend.BaseURL)
	assert.Equal(t, cfg.Backend.UploadTimeout, again.Backend.UploadTimeout)
}

func TestNormalizePath(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(real, 0o755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(real, link))

	a, err := NormalizePath(real)
	require.NoError(t, err)
	b, err := NormalizePath(link + "/.")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotContains(t, a, `\`)

	_, err = NormalizePath(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	file := filepath.Join(t.TempDir(), "log", "x.log")
	require.NoError(t, SetupLogging("debug", file))
	assert.DirExists(t, filepath.Dir(file))

	assert.ErrorIs(t, SetupLogging("loud", ""), ErrInvalidConfig)
}
