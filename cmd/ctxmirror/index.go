package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/dshills/ctxmirror/internal/indexer"
	"github.com/dshills/ctxmirror/internal/tasks"
)

var (
	indexAlias     string
	indexForceFull bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a project",
	Long: `Index a project and persist its fingerprint list.

Only blobs whose fingerprint is not stored yet are uploaded. Use
--force-full to upload everything again. Passing both a path and --alias
binds the alias for later use.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexAlias, "alias", "", "Project alias to bind or resolve")
	indexCmd.Flags().BoolVar(&indexForceFull, "force-full", false, "Ignore the stored index and upload every blob")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	key, root, err := a.resolve(ctx, indexAlias, args)
	if err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr)) // Spinner: ⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏
	s.Suffix = " indexing " + key
	s.Start()
	defer s.Stop()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go followProgress(watchCtx, s, a.indexer, key)

	stats, err := a.indexer.Index(ctx, key, root, indexer.IndexOptions{ForceFull: indexForceFull})
	cancel()
	s.Stop()
	if err != nil {
		return err
	}

	fmt.Println(stats.Summary())
	return nil
}

// followProgress refreshes the spinner suffix from the task registry.
func followProgress(ctx context.Context, s *spinner.Spinner, idx *indexer.Indexer, key string) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := idx.Status(key)
			if st.Progress == nil {
				continue
			}
			s.Lock()
			s.Suffix = progressLine(*st.Progress)
			s.Unlock()
		}
	}
}

func progressLine(p tasks.Progress) string {
	line := fmt.Sprintf(" %s", p.Phase)
	if p.ChunksTotal > 0 {
		line += fmt.Sprintf(" batch %d/%d, %d/%d blobs (%.0f%%)",
			p.ChunkIndex, p.ChunksTotal, p.Uploaded, p.NewTotal, p.Percent)
	}
	if eta, ok := p.ETA(); ok {
		line += fmt.Sprintf(", eta %s", eta.Round(time.Second))
	}
	return line
}
