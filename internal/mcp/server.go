package mcp

import (
	"net/http"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/ctxmirror/internal/indexer"
)

var log = logging.Logger("mcp")

const (
	// ServerName is the MCP server name
	ServerName = "ctxmirror"
	// EndpointPath is where the streamable HTTP transport is mounted
	EndpointPath = "/mcp"
)

const instructions = "ctxmirror tools: search_context(project_root_path?|alias?, query, skip_index_if_indexed?=true); " +
	"index_project(project_root_path?|alias?, force_full?=false, async?=false); " +
	"index_status(project_root_path?|alias?); stop_index(project_root_path?|alias?). " +
	"Use forward slashes on Windows."

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	indexer *indexer.Indexer
}

// NewServer creates a new MCP server instance backed by idx.
func NewServer(idx *indexer.Indexer, version string) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			version,
			server.WithToolCapabilities(false),
			server.WithInstructions(instructions),
		),
		indexer: idx,
	}
	s.registerTools()
	return s
}

// ServeStdio serves MCP on stdin/stdout and blocks until the client
// disconnects or the process is signalled.
func (s *Server) ServeStdio() error {
	log.Infow("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

// Handler returns the streamable HTTP transport for mounting at
// EndpointPath.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp, server.WithEndpointPath(EndpointPath))
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchContextTool(), s.handleSearchContext)
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
	s.mcp.AddTool(stopIndexTool(), s.handleStopIndex)
}
