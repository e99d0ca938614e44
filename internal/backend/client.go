// Package backend talks to the remote retrieval service. It uploads blobs
// and asks natural-language questions against previously uploaded blobs.
// The client makes exactly one HTTP call per method; retries belong to
// the caller.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/dshills/ctxmirror/pkg/types"
)

var log = logging.Logger("backend")

const (
	DefaultUploadTimeout    = 30 * time.Second
	DefaultRetrievalTimeout = 60 * time.Second
	DefaultMaxOutputLength  = 0

	uploadPath    = "/batch-upload"
	retrievalPath = "/agents/codebase-retrieval"
	maxErrorBody  = 4096
)

var (
	// ErrMissingBaseURL is returned by New when no endpoint is configured
	ErrMissingBaseURL = errors.New("backend base URL is required")
	// ErrMissingToken is returned by New when no credential is configured
	ErrMissingToken = errors.New("backend token is required")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Body)
}

// Config holds backend connection settings.
type Config struct {
	BaseURL          string
	Token            string
	UserAgent        string
	UploadTimeout    time.Duration
	RetrievalTimeout time.Duration

	MaxOutputLength          int
	DisableCodebaseRetrieval bool
	EnableCommitRetrieval    bool
}

// Client implements the retrieval gateway over HTTP.
type Client struct {
	cfg             Config
	uploadClient    *http.Client
	retrievalClient *http.Client
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}
	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = DefaultRetrievalTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ctxmirror"
	}

	return &Client{
		cfg:             cfg,
		uploadClient:    &http.Client{Timeout: cfg.UploadTimeout},
		retrievalClient: &http.Client{Timeout: cfg.RetrievalTimeout},
	}, nil
}

type uploadRequest struct {
	Blobs []types.Blob `json:"blobs"`
}

type uploadResponse struct {
	BlobNames []string `json:"blob_names"`
}

// Upload sends one batch and returns the names the backend assigned.
func (c *Client) Upload(ctx context.Context, blobs []types.Blob) ([]string, error) {
	var resp uploadResponse
	if err := c.post(ctx, c.uploadClient, uploadPath, uploadRequest{Blobs: blobs}, &resp); err != nil {
		return nil, err
	}
	log.Debugw("uploaded batch", "blobs", len(blobs), "names", len(resp.BlobNames))
	return resp.BlobNames, nil
}

type retrievalBlobs struct {
	CheckpointID *string  `json:"checkpoint_id"`
	AddedBlobs   []string `json:"added_blobs"`
	DeletedBlobs []string `json:"deleted_blobs"`
}

type retrievalRequest struct {
	InformationRequest       string         `json:"information_request"`
	Blobs                    retrievalBlobs `json:"blobs"`
	Dialog                   []any          `json:"dialog"`
	MaxOutputLength          int            `json:"max_output_length"`
	DisableCodebaseRetrieval bool           `json:"disable_codebase_retrieval"`
	EnableCommitRetrieval    bool           `json:"enable_commit_retrieval"`
}

type retrievalResponse struct {
	FormattedRetrieval string `json:"formatted_retrieval"`
}

// Retrieve answers query against the blobs named by fingerprints. An
// empty string means the backend found nothing.
func (c *Client) Retrieve(ctx context.Context, query string, fingerprints []string) (string, error) {
	if fingerprints == nil {
		fingerprints = []string{}
	}
	req := retrievalRequest{
		InformationRequest: query,
		Blobs: retrievalBlobs{
			AddedBlobs:   fingerprints,
			DeletedBlobs: []string{},
		},
		Dialog:                   []any{},
		MaxOutputLength:          c.cfg.MaxOutputLength,
		DisableCodebaseRetrieval: c.cfg.DisableCodebaseRetrieval,
		EnableCommitRetrieval:    c.cfg.EnableCommitRetrieval,
	}

	var resp retrievalResponse
	if err := c.post(ctx, c.retrievalClient, retrievalPath, req, &resp); err != nil {
		return "", err
	}
	return resp.FormattedRetrieval, nil
}

func (c *Client) post(ctx context.Context, client *http.Client, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
