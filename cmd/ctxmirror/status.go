package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/ctxmirror/internal/storage"
)

var (
	statusAlias string
	statusJSON  bool
)

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show stored indexes",
	Long: `Show the stored index of a project, or of every project when neither
a path nor --alias is given. Progress of runs inside a server process is
available from its /api/tasks endpoint or the index_status tool.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAlias, "alias", "", "Project alias to resolve")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projects, err := a.indexer.Projects(ctx)
	if err != nil {
		return err
	}

	if len(args) > 0 || statusAlias != "" {
		key, _, err := a.resolve(ctx, statusAlias, args)
		if err != nil {
			return err
		}
		var found []storage.ProjectSummary
		for _, p := range projects {
			if p.Key == key {
				found = append(found, p)
			}
		}
		if len(found) == 0 {
			return fmt.Errorf("project not indexed: %s", key)
		}
		projects = found
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(projects)
	}

	if len(projects) == 0 {
		fmt.Println("No projects indexed.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tBLOBS\tLAST INDEXED")
	for _, p := range projects {
		last := "-"
		if !p.UpdatedAt.IsZero() {
			last = p.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Key, p.Blobs, last)
	}
	return tw.Flush()
}
