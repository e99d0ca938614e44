package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/ctxmirror/internal/httpapi"
	"github.com/dshills/ctxmirror/internal/mcp"
)

var (
	serveTransport string
	serveBind      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server.

With --transport stdio (the default) the server speaks MCP over stdin and
stdout, which is what MCP clients expect when they launch ctxmirror
themselves. With --transport http it listens on --bind and serves the JSON
API under /api together with MCP streamable HTTP under /mcp.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "stdio or http (default from settings)")
	serveCmd.Flags().StringVar(&serveBind, "bind", "", "listen address for http transport (default from settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	transport := cfg.Server.Transport
	if serveTransport != "" {
		transport = serveTransport
	}
	bind := cfg.Server.Bind
	if serveBind != "" {
		bind = serveBind
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcp.NewServer(a.indexer, version)
	// Abort background runs so Close does not wait on them.
	defer func() {
		if n := a.indexer.StopAll(); n > 0 {
			log.Infow("aborted background runs on shutdown", "count", n)
		}
	}()

	switch transport {
	case "stdio":
		log.Infow("ctxmirror starting", "version", version, "transport", transport)
		return srv.ServeStdio()
	case "http":
		log.Infow("ctxmirror starting", "version", version, "transport", transport, "bind", bind)
		return httpapi.New(a.indexer, srv.Handler(), version).Run(cmd.Context(), bind)
	default:
		return fmt.Errorf("unknown transport %q (want stdio or http)", transport)
	}
}
