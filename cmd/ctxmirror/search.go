package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchAlias   string
	searchReindex bool
)

var searchCmd = &cobra.Command{
	Use:   "search [path] <query>",
	Short: "Ask a question about a project",
	Long: `Ask a natural language question about a project.

The stored index is reused when present; otherwise the project is indexed
first. Use --reindex to bring the index up to date before asking.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchAlias, "alias", "", "Project alias to bind or resolve")
	searchCmd.Flags().BoolVar(&searchReindex, "reindex", false, "Index changed files before searching")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := args[len(args)-1]
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	key, root, err := a.resolve(ctx, searchAlias, args[:len(args)-1])
	if err != nil {
		return err
	}

	out, err := a.indexer.Search(ctx, key, root, query, !searchReindex)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
