package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	pathDescription  = "Absolute path to the project root (use forward slashes on Windows). Optional when alias is provided"
	aliasDescription = "Project alias. Bound to project_root_path when both are given, otherwise resolved to the stored path"
)

func targetOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("project_root_path", mcp.Description(pathDescription)),
		mcp.WithString("alias", mcp.Description(aliasDescription)),
	}
}

// searchContextTool returns the tool definition for search_context
func searchContextTool() mcp.Tool {
	opts := append(targetOptions(),
		mcp.WithDescription("Search relevant code context. Auto-index when not indexed; otherwise query directly (configurable)."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language query"),
		),
		mcp.WithBoolean("skip_index_if_indexed",
			mcp.Description("When true (default), skip indexing if the project already has a stored index"),
			mcp.DefaultBool(true),
		),
	)
	return mcp.NewTool("search_context", opts...)
}

// indexProjectTool returns the tool definition for index_project
func indexProjectTool() mcp.Tool {
	opts := append(targetOptions(),
		mcp.WithDescription("Index a project and persist its fingerprint list. Optionally bind an alias or force a full re-index."),
		mcp.WithBoolean("force_full",
			mcp.Description("Ignore the stored index and upload every blob"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("async",
			mcp.Description("Return immediately and index in the background; poll index_status"),
			mcp.DefaultBool(false),
		),
	)
	return mcp.NewTool("index_project", opts...)
}

// indexStatusTool returns the tool definition for index_status
func indexStatusTool() mcp.Tool {
	opts := append(targetOptions(),
		mcp.WithDescription("Report indexing progress, the running flag and an ETA in seconds"),
	)
	return mcp.NewTool("index_status", opts...)
}

// stopIndexTool returns the tool definition for stop_index
func stopIndexTool() mcp.Tool {
	opts := append(targetOptions(),
		mcp.WithDescription("Abort the running index of a project. Nothing is persisted for an aborted run"),
	)
	return mcp.NewTool("stop_index", opts...)
}
