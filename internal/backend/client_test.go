package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ctxmirror/pkg/types"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Token: "t"})
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	_, err = New(Config{BaseURL: "http://x"})
	assert.ErrorIs(t, err, ErrMissingToken)

	c, err := New(Config{BaseURL: " http://x/ ", Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, "http://x", c.cfg.BaseURL)
	assert.Equal(t, DefaultUploadTimeout, c.uploadClient.Timeout)
	assert.Equal(t, DefaultRetrievalTimeout, c.retrievalClient.Timeout)
}

func TestUpload_WireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/batch-upload", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "ctxmirror/test", r.Header.Get("User-Agent"))

		var body map[string][]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []map[string]string{
			{"path": "a.go", "content": "package a\n"},
		}, body["blobs"])

		_, _ = w.Write([]byte(`{"blob_names":["n1"]}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Token: "secret", UserAgent: "ctxmirror/test"})
	require.NoError(t, err)

	names, err := c.Upload(context.Background(), []types.Blob{{Path: "a.go", Content: "package a\n"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, names)
}

func TestRetrieve_WireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/codebase-retrieval", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "where is main?", body["information_request"])
		assert.Equal(t, map[string]any{
			"checkpoint_id": nil,
			"added_blobs":   []any{"fp1", "fp2"},
			"deleted_blobs": []any{},
		}, body["blobs"])
		assert.Equal(t, []any{}, body["dialog"])
		assert.Equal(t, float64(1000), body["max_output_length"])
		assert.Equal(t, false, body["disable_codebase_retrieval"])
		assert.Equal(t, true, body["enable_commit_retrieval"])

		_, _ = w.Write([]byte(`{"formatted_retrieval":"main.go: func main()"}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Token: "t", MaxOutputLength: 1000, EnableCommitRetrieval: true})
	require.NoError(t, err)

	out, err := c.Retrieve(context.Background(), "where is main?", []string{"fp1", "fp2"})
	require.NoError(t, err)
	assert.Equal(t, "main.go: func main()", out)
}

func TestPost_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Token: "t"})
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Equal(t, "slow down", se.Body)
	assert.Contains(t, err.Error(), "api error 429")
}

func TestPost_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Token: "t", UploadTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), nil)
	assert.Error(t, err)
}
