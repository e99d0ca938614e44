package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ctxmirror/internal/collector"
	"github.com/dshills/ctxmirror/internal/config"
	"github.com/dshills/ctxmirror/internal/indexer"
	"github.com/dshills/ctxmirror/internal/retry"
	"github.com/dshills/ctxmirror/internal/storage"
	"github.com/dshills/ctxmirror/pkg/types"
)

type stubGateway struct {
	mu        sync.Mutex
	uploads   int
	answer    string
	uploadErr error
	block     chan struct{}
}

func (g *stubGateway) Upload(ctx context.Context, blobs []types.Blob) ([]string, error) {
	g.mu.Lock()
	g.uploads++
	block, err := g.block, g.uploadErr
	g.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return make([]string, len(blobs)), nil
}

func (g *stubGateway) Retrieve(ctx context.Context, query string, fps []string) (string, error) {
	return g.answer, nil
}

func newTestServer(t *testing.T, gw *stubGateway) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fast := retry.Config{Attempts: 3, BaseDelay: time.Millisecond}
	idx := indexer.New(collector.New(collector.Options{}), store, gw, indexer.Config{
		UploadRetry:    fast,
		RetrievalRetry: fast,
		Normalize:      config.NormalizePath,
	})
	t.Cleanup(idx.Wait)
	return NewServer(idx, "test"), root
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text, res.IsError
}

func TestRegisterTools(t *testing.T) {
	s, _ := newTestServer(t, &stubGateway{})

	tools := s.mcp.ListTools()
	for _, name := range []string{"search_context", "index_project", "index_status", "stop_index"} {
		tool, ok := tools[name]
		require.True(t, ok, "%s not registered", name)
		assert.Equal(t, "object", tool.Tool.InputSchema.Type)
		assert.Contains(t, tool.Tool.InputSchema.Properties, "project_root_path")
		assert.Contains(t, tool.Tool.InputSchema.Properties, "alias")
	}
	assert.Equal(t, []string{"query"}, tools["search_context"].Tool.InputSchema.Required)
}

func TestIndexProject(t *testing.T) {
	gw := &stubGateway{}
	s, root := newTestServer(t, gw)

	text, isErr := call(t, s.handleIndexProject, map[string]any{"project_root_path": root})
	assert.False(t, isErr)
	assert.Equal(t, "Index complete: total_blobs=1, new_blobs=1, existing_blobs=0", text)

	text, _ = call(t, s.handleIndexProject, map[string]any{"project_root_path": root})
	assert.Equal(t, "Index complete: total_blobs=1, new_blobs=0, existing_blobs=1", text)

	text, _ = call(t, s.handleIndexProject, map[string]any{"project_root_path": root, "force_full": true})
	assert.Equal(t, "Index complete: total_blobs=1, new_blobs=1, existing_blobs=0", text)
	assert.Equal(t, 2, gw.uploads)
}

func TestIndexProject_Errors(t *testing.T) {
	s, _ := newTestServer(t, &stubGateway{})

	text, isErr := call(t, s.handleIndexProject, map[string]any{})
	assert.True(t, isErr)
	assert.Equal(t, "Error: provide project_root_path or alias", text)

	text, isErr = call(t, s.handleIndexProject, map[string]any{"alias": "nope"})
	assert.True(t, isErr)
	assert.Contains(t, text, "alias not found")

	text, isErr = call(t, s.handleIndexProject, map[string]any{"project_root_path": "/definitely/not/here"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Error: project root not found")
}

func TestAliasBinding(t *testing.T) {
	s, root := newTestServer(t, &stubGateway{answer: "ctx"})

	_, isErr := call(t, s.handleIndexProject, map[string]any{"project_root_path": root, "alias": "demo"})
	require.False(t, isErr)

	text, isErr := call(t, s.handleSearchContext, map[string]any{"alias": "demo", "query": "main"})
	assert.False(t, isErr)
	assert.Equal(t, "ctx", text)
}

func TestSearchContext(t *testing.T) {
	t.Run("missing query", func(t *testing.T) {
		s, root := newTestServer(t, &stubGateway{})
		text, isErr := call(t, s.handleSearchContext, map[string]any{"project_root_path": root})
		assert.True(t, isErr)
		assert.Equal(t, "Error: query parameter is required", text)
	})

	t.Run("empty answer", func(t *testing.T) {
		s, root := newTestServer(t, &stubGateway{})
		text, isErr := call(t, s.handleSearchContext, map[string]any{"project_root_path": root, "query": "q"})
		assert.False(t, isErr)
		assert.Equal(t, indexer.NoContextMessage, text)
	})

	t.Run("upload failure", func(t *testing.T) {
		s, root := newTestServer(t, &stubGateway{uploadErr: errors.New("boom")})
		text, isErr := call(t, s.handleSearchContext, map[string]any{"project_root_path": root, "query": "q"})
		assert.True(t, isErr)
		assert.Contains(t, text, "Error: upload failed")
	})
}

func TestAsyncStatusAndStop(t *testing.T) {
	gw := &stubGateway{block: make(chan struct{})}
	s, root := newTestServer(t, gw)
	target := map[string]any{"project_root_path": root}

	text, isErr := call(t, s.handleIndexProject, map[string]any{"project_root_path": root, "async": true})
	require.False(t, isErr)
	assert.Contains(t, text, "task_id=")

	text, isErr = call(t, s.handleIndexStatus, target)
	require.False(t, isErr)
	var st indexer.Status
	require.NoError(t, json.Unmarshal([]byte(text), &st))
	assert.True(t, st.Running)
	require.NotNil(t, st.Progress)

	text, isErr = call(t, s.handleStopIndex, target)
	assert.False(t, isErr)
	assert.Equal(t, "aborted", text)

	text, isErr = call(t, s.handleStopIndex, target)
	assert.True(t, isErr)
	assert.Equal(t, "Error: no running task", text)

	close(gw.block)
	s.indexer.Wait()

	text, _ = call(t, s.handleIndexStatus, target)
	require.NoError(t, json.Unmarshal([]byte(text), &st))
	assert.False(t, st.Running)
	assert.Equal(t, types.PhaseAborted, st.Progress.Phase)
}

func TestToToolError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{types.ErrTargetRequired, ErrorCodeInvalidParams},
		{types.ErrAliasNotFound, ErrorCodeProjectNotFound},
		{types.ErrIndexingInProgress, ErrorCodeIndexingInProgress},
		{types.ErrNoFilesFound, ErrorCodeNoFiles},
		{types.ErrRetrievalFailed, ErrorCodeBackend},
		{errors.New("other"), ErrorCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			te := toToolError(tt.err)
			assert.Equal(t, tt.code, te.Code)
			assert.Equal(t, tt.err.Error(), te.Message)
		})
	}
}
