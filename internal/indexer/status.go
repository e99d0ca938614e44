package indexer

import (
	"context"

	"github.com/dshills/ctxmirror/internal/storage"
	"github.com/dshills/ctxmirror/internal/tasks"
)

// Status is the externally reported state of a project's indexing.
type Status struct {
	Key        string          `json:"key"`
	Running    bool            `json:"running"`
	Progress   *tasks.Progress `json:"progress"`
	ETASeconds *int64          `json:"eta_secs"`
}

// Status reports the latest run for key. Progress is nil when key was never
// indexed in this process.
func (idx *Indexer) Status(key string) Status {
	st := Status{Key: key, Running: idx.tasks.IsRunning(key)}
	if p, ok := idx.tasks.Get(key); ok {
		st.Progress = &p
		st.ETASeconds = p.ETASeconds()
	}
	return st
}

// Stop aborts the live run for key. It reports whether one was running.
func (idx *Indexer) Stop(key string) bool {
	return idx.tasks.Abort(key)
}

// StopAll aborts every live run and returns how many were aborted.
func (idx *Indexer) StopAll() int {
	n := 0
	for _, e := range idx.tasks.Snapshot() {
		if e.Running && idx.tasks.Abort(e.Key) {
			n++
		}
	}
	return n
}

// Projects lists every persisted project index.
func (idx *Indexer) Projects(ctx context.Context) ([]storage.ProjectSummary, error) {
	return idx.store.ListProjects(ctx)
}
