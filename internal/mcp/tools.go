package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/ctxmirror/internal/indexer"
	"github.com/dshills/ctxmirror/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // Root path missing or alias unbound
	ErrorCodeIndexingInProgress = -32002 // Another run owns the project
	ErrorCodeNoFiles            = -32003 // Nothing to index
	ErrorCodeBackend            = -32004 // Upload or retrieval failed
)

// ToolError is a failed tool call. It is reported to the client as a tool
// error result whose text starts with "Error:".
type ToolError struct {
	Code    int
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// toToolError classifies err by its sentinel.
func toToolError(err error) *ToolError {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, types.ErrTargetRequired):
		code = ErrorCodeInvalidParams
	case errors.Is(err, types.ErrProjectNotFound),
		errors.Is(err, types.ErrNotDirectory),
		errors.Is(err, types.ErrAliasNotFound):
		code = ErrorCodeProjectNotFound
	case errors.Is(err, types.ErrIndexingInProgress):
		code = ErrorCodeIndexingInProgress
	case errors.Is(err, types.ErrNoFilesFound):
		code = ErrorCodeNoFiles
	case errors.Is(err, types.ErrUploadFailed), errors.Is(err, types.ErrRetrievalFailed):
		code = ErrorCodeBackend
	}
	return &ToolError{Code: code, Message: err.Error()}
}

func errorResult(tool string, err error) *mcp.CallToolResult {
	te := toToolError(err)
	log.Warnw("tool call failed", "tool", tool, "code", te.Code, "error", te.Message)
	return mcp.NewToolResultError("Error: " + te.Message)
}

// resolve reads the shared target arguments.
func (s *Server) resolve(ctx context.Context, request mcp.CallToolRequest) (key, root string, err error) {
	alias := request.GetString("alias", "")
	path := request.GetString("project_root_path", "")
	return s.indexer.ResolveTarget(ctx, alias, path)
}

// handleSearchContext handles the search_context tool invocation
func (s *Server) handleSearchContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || query == "" {
		return mcp.NewToolResultError("Error: query parameter is required"), nil
	}
	key, root, err := s.resolve(ctx, request)
	if err != nil {
		return errorResult("search_context", err), nil
	}
	skip := request.GetBool("skip_index_if_indexed", true)

	log.Infow("search_context invoked", "key", key, "skip_index_if_indexed", skip)
	out, err := s.indexer.Search(ctx, key, root, query, skip)
	if err != nil {
		return errorResult("search_context", err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// handleIndexProject handles the index_project tool invocation
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, root, err := s.resolve(ctx, request)
	if err != nil {
		return errorResult("index_project", err), nil
	}
	opts := indexer.IndexOptions{ForceFull: request.GetBool("force_full", false)}

	log.Infow("index_project invoked", "key", key, "force_full", opts.ForceFull)
	if request.GetBool("async", false) {
		id, err := s.indexer.IndexAsync(ctx, key, root, opts)
		if err != nil {
			return errorResult("index_project", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Indexing started in background (task_id=%s); poll index_status for progress", id)), nil
	}

	stats, err := s.indexer.Index(ctx, key, root, opts)
	if err != nil {
		return errorResult("index_project", err), nil
	}
	return mcp.NewToolResultText(stats.Summary()), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, _, err := s.resolve(ctx, request)
	if err != nil {
		return errorResult("index_status", err), nil
	}
	return mcp.NewToolResultText(formatJSON(s.indexer.Status(key))), nil
}

// handleStopIndex handles the stop_index tool invocation
func (s *Server) handleStopIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, _, err := s.resolve(ctx, request)
	if err != nil {
		return errorResult("stop_index", err), nil
	}
	if !s.indexer.Stop(key) {
		return mcp.NewToolResultError("Error: no running task"), nil
	}
	return mcp.NewToolResultText("aborted"), nil
}

// formatJSON formats v as indented JSON
func formatJSON(v any) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(bytes)
}
