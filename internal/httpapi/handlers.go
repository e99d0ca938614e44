package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dshills/ctxmirror/internal/indexer"
	"github.com/dshills/ctxmirror/internal/tasks"
	"github.com/dshills/ctxmirror/pkg/types"
)

const (
	statusSuccess  = "success"
	statusAccepted = "accepted"
	statusError    = "error"

	searchBusyMessage = "indexing in progress; please retry later"
)

type target struct {
	ProjectRootPath string `json:"project_root_path,omitempty"`
	Alias           string `json:"alias,omitempty"`
}

type searchRequest struct {
	target
	Query              string `json:"query"`
	SkipIndexIfIndexed *bool  `json:"skip_index_if_indexed,omitempty"`
}

type indexRequest struct {
	target
	ForceFull bool `json:"force_full,omitempty"`
	Async     bool `json:"async,omitempty"`
}

// Response is the envelope of every API call except /api/tasks.
type Response struct {
	Status string `json:"status"`
	Result string `json:"result"`
}

// TaskResponse is the body of GET /api/tasks.
type TaskResponse struct {
	Status   string          `json:"status"`
	Running  bool            `json:"running"`
	Progress *tasks.Progress `json:"progress"`
	ETASecs  *int64          `json:"eta_secs"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnw("failed to encode response", "error", err)
	}
}

func reply(w http.ResponseWriter, status, result string) {
	writeJSON(w, http.StatusOK, Response{Status: status, Result: result})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: statusError, Result: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Query == "" {
		reply(w, statusError, "query is required")
		return
	}

	key, root, err := s.idx.ResolveTarget(r.Context(), req.Alias, req.ProjectRootPath)
	if err != nil {
		reply(w, statusError, err.Error())
		return
	}
	if s.idx.Status(key).Running {
		reply(w, statusAccepted, searchBusyMessage)
		return
	}

	skip := true
	if req.SkipIndexIfIndexed != nil {
		skip = *req.SkipIndexIfIndexed
	}
	out, err := s.idx.Search(r.Context(), key, root, req.Query, skip)
	switch {
	case errors.Is(err, types.ErrIndexingInProgress):
		reply(w, statusAccepted, searchBusyMessage)
	case err != nil:
		reply(w, statusError, err.Error())
	default:
		reply(w, statusSuccess, out)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if !decode(w, r, &req) {
		return
	}

	key, root, err := s.idx.ResolveTarget(r.Context(), req.Alias, req.ProjectRootPath)
	if err != nil {
		reply(w, statusError, err.Error())
		return
	}
	opts := indexer.IndexOptions{ForceFull: req.ForceFull}

	if req.Async {
		id, err := s.idx.IndexAsync(r.Context(), key, root, opts)
		if errors.Is(err, types.ErrIndexingInProgress) {
			reply(w, statusAccepted, fmt.Sprintf("indexing already in progress for %s", root))
			return
		}
		if err != nil {
			reply(w, statusError, err.Error())
			return
		}
		log.Infow("async index started", "key", key, "task", id, "request_id", GetRequestID(r.Context()))
		reply(w, statusAccepted, fmt.Sprintf("async indexing started for %s", root))
		return
	}

	stats, err := s.idx.Index(r.Context(), key, root, opts)
	if err != nil {
		reply(w, statusError, err.Error())
		return
	}
	reply(w, statusSuccess, stats.Summary())
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, _, err := s.idx.ResolveTarget(r.Context(), q.Get("alias"), q.Get("project_root_path"))
	if err != nil {
		writeJSON(w, http.StatusOK, TaskResponse{Status: statusError})
		return
	}

	st := s.idx.Status(key)
	writeJSON(w, http.StatusOK, TaskResponse{
		Status:   statusSuccess,
		Running:  st.Running,
		Progress: st.Progress,
		ETASecs:  st.ETASeconds,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req target
	if !decode(w, r, &req) {
		return
	}

	key, _, err := s.idx.ResolveTarget(r.Context(), req.Alias, req.ProjectRootPath)
	if err != nil {
		reply(w, statusError, err.Error())
		return
	}
	if !s.idx.Stop(key) {
		reply(w, statusError, "no running task")
		return
	}
	reply(w, statusSuccess, "aborted")
}
