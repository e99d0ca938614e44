package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/ctxmirror/internal/backend"
	"github.com/dshills/ctxmirror/internal/collector"
	"github.com/dshills/ctxmirror/internal/config"
	"github.com/dshills/ctxmirror/internal/indexer"
	"github.com/dshills/ctxmirror/internal/storage"
)

var log = logging.Logger("ctxmirror")

var (
	version   = "dev"
	buildTime = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	baseURL       string
	token         string
	logLevel      string
	persistConfig bool
}

var (
	flags globalFlags
	cfg   *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ctxmirror",
	Short: "Mirror projects to a code retrieval backend and search them",
	Long: `ctxmirror uploads the text files of a project to a remote retrieval
backend, tracking what was already sent so only changed content is uploaded
again, and answers natural language questions about the code.

It runs as an MCP server (stdio or streamable HTTP), as a JSON HTTP API, or
as a one-shot command line tool.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(config.LoadOptions{
			Overrides: config.Overrides{
				BaseURL:  flags.baseURL,
				Token:    flags.token,
				LogLevel: flags.logLevel,
			},
		})
		if err != nil {
			return err
		}
		cfg = loaded

		if err := config.SetupLogging(cfg.Log.Level, cfg.LogFile()); err != nil {
			return err
		}
		if flags.persistConfig {
			if err := cfg.Save(); err != nil {
				return err
			}
			log.Infow("settings saved", "path", cfg.SettingsPath())
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.baseURL, "base-url", "", "Backend base URL (overrides settings and environment)")
	pf.StringVar(&flags.token, "token", "", "Backend token (overrides settings and environment)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&flags.persistConfig, "persist-config", false, "Write the merged settings back to the settings file")
}

// app holds the services a command needs.
type app struct {
	store     storage.Store
	collector *collector.Collector
	indexer   *indexer.Indexer
}

func openApp() (*app, error) {
	client, err := backend.New(cfg.BackendClientConfig("ctxmirror/" + version))
	if err != nil {
		return nil, fmt.Errorf("failed to configure backend: %w", err)
	}

	store, err := storage.Open(cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	c := collector.New(cfg.CollectorOptions())
	idx := indexer.New(c, store, client, indexer.Config{
		BatchSize: cfg.Index.BatchSize,
		Normalize: config.NormalizePath,
	})
	log.Debugw("services ready", "store", cfg.Store.Backend, "data_dir", cfg.DataDir(), "build_mode", storage.BuildMode)
	return &app{store: store, collector: c, indexer: idx}, nil
}

func (a *app) Close() {
	a.indexer.Wait()
	if err := a.store.Close(); err != nil {
		log.Warnw("failed to close store", "error", err)
	}
}

// resolve picks the project from an optional path argument and --alias.
// With neither, the working directory is used.
func (a *app) resolve(ctx context.Context, alias string, args []string) (key, root string, err error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" && alias == "" {
		path = "."
	}
	return a.indexer.ResolveTarget(ctx, alias, path)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
