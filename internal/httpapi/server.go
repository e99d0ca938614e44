// Package httpapi serves the JSON HTTP API and mounts the MCP streamable
// HTTP transport next to it.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/dshills/ctxmirror/internal/indexer"
)

var log = logging.Logger("httpapi")

// Server routes API requests to an Indexer.
type Server struct {
	idx     *indexer.Indexer
	version string
	handler http.Handler
}

// New builds the router. mcpHandler is mounted at /mcp when non-nil.
func New(idx *indexer.Indexer, mcpHandler http.Handler, version string) *Server {
	s := &Server{idx: idx, version: version}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/index", s.handleIndex)
	mux.HandleFunc("GET /api/tasks", s.handleTasks)
	mux.HandleFunc("POST /api/index/stop", s.handleStop)
	if mcpHandler != nil {
		mux.Handle("/mcp", mcpHandler)
	}

	s.handler = RequestID(LogRequests(mux))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Infow("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorw("server shutdown failed", "error", err)
		}
	}()

	log.Infow("server starting", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
