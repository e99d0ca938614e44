package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/ctxmirror/internal/indexer"
	"github.com/dshills/ctxmirror/internal/watcher"
	"github.com/dshills/ctxmirror/pkg/types"
)

var (
	watchAlias    string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Keep a project index up to date",
	Long: `Index a project, then watch it and re-index after each burst of
changes. A burst that arrives while a run is in progress is dropped; the
next change picks it up.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAlias, "alias", "", "Project alias to bind or resolve")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before re-indexing (default from settings)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	key, root, err := a.resolve(ctx, watchAlias, args)
	if err != nil {
		return err
	}
	debounce := cfg.Watch.Debounce
	if watchDebounce > 0 {
		debounce = watchDebounce
	}

	stats, err := a.indexer.Index(ctx, key, root, indexer.IndexOptions{})
	switch {
	case err == nil:
		log.Infow(stats.Summary(), "key", key)
	case errors.Is(err, types.ErrNoFilesFound):
		log.Warnw("nothing to index yet", "key", key)
	default:
		return err
	}

	w, err := watcher.New(root, a.collector, debounce, func(ctx context.Context) error {
		_, err := a.indexer.IndexAsync(ctx, key, root, indexer.IndexOptions{})
		return err
	})
	if err != nil {
		return err
	}

	err = w.Run(ctx)
	a.indexer.Stop(key)
	return err
}
