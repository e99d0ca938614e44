package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/ctxmirror/internal/httpapi"
)

var (
	stopAlias  string
	stopServer string
)

var stopCmd = &cobra.Command{
	Use:   "stop [path]",
	Short: "Abort a background index in a running server",
	Long: `Abort the background index of a project inside a server started with
"serve --transport http". The partial run is not persisted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopAlias, "alias", "", "Project alias to resolve")
	stopCmd.Flags().StringVar(&stopServer, "server", "", "Server address (default from settings bind)")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	server := stopServer
	if server == "" {
		server = "http://" + cfg.Server.Bind
	}

	body := map[string]string{}
	if stopAlias != "" {
		body["alias"] = stopAlias
	}
	if len(args) > 0 {
		body["project_root_path"] = args[0]
	}
	if len(body) == 0 {
		body["project_root_path"] = "."
	}
	if p, ok := body["project_root_path"]; ok {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		body["project_root_path"] = filepath.ToSlash(abs)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, server+"/api/index/stop", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	var out httpapi.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Status != "success" {
		return fmt.Errorf("%s", out.Result)
	}
	fmt.Println(out.Result)
	return nil
}
