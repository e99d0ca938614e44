// Package mcp implements the Model Context Protocol (MCP) server for ctxmirror.
//
// The server exposes four tools to AI coding assistants:
//   - search_context: answer a natural language query against a project,
//     indexing it first when needed
//   - index_project: index a project, synchronously or in the background
//   - index_status: report progress, the running flag and an ETA
//   - stop_index: abort a background run
//
// Every tool accepts project_root_path, alias or both. Passing both binds
// the alias to the path for later calls.
//
// # Transports
//
// ServeStdio speaks JSON-RPC over stdin/stdout:
//
//	ctxmirror serve
//
// Handler returns the streamable HTTP transport, which the HTTP API
// mounts at /mcp:
//
//	ctxmirror serve --transport http --bind 127.0.0.1:8888
//
// # Tool: search_context
//
//	Request:
//	{
//	  "name": "search_context",
//	  "arguments": {
//	    "alias": "web",
//	    "query": "where are sessions validated?",
//	    "skip_index_if_indexed": true
//	  }
//	}
//
// The result is the backend's formatted retrieval text.
//
// # Errors
//
// Failures are returned as tool error results whose text starts with
// "Error:", never as protocol errors, so clients always see the message.
package mcp
