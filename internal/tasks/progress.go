package tasks

import (
	"time"

	"github.com/dshills/ctxmirror/pkg/types"
)

// Progress is a point-in-time view of one indexing run.
type Progress struct {
	TaskID        string      `json:"task_id"`
	Phase         types.Phase `json:"phase"`
	Total         int         `json:"total"`
	NewTotal      int         `json:"new_total"`
	Uploaded      int         `json:"uploaded"`
	ChunksTotal   int         `json:"chunks_total"`
	ChunkIndex    int         `json:"chunk_index"`
	ChunkBytes    int         `json:"chunk_bytes"`
	BytesUploaded int64       `json:"bytes_uploaded"`
	Percent       float64     `json:"percent"`
	StartedAt     time.Time   `json:"started_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Message       string      `json:"message,omitempty"`
}

// ETA extrapolates the remaining upload time from the average time per
// completed batch. It is absent until at least one batch has finished.
func (p Progress) ETA() (time.Duration, bool) {
	if p.ChunkIndex <= 0 || p.ChunksTotal <= 0 || p.UpdatedAt.Before(p.StartedAt) {
		return 0, false
	}
	remaining := p.ChunksTotal - p.ChunkIndex
	if remaining < 0 {
		remaining = 0
	}
	avg := p.UpdatedAt.Sub(p.StartedAt) / time.Duration(p.ChunkIndex)
	return avg * time.Duration(remaining), true
}

// ETASeconds returns ETA in whole seconds, or nil when unknown.
func (p Progress) ETASeconds() *int64 {
	eta, ok := p.ETA()
	if !ok {
		return nil
	}
	secs := int64(eta / time.Second)
	return &secs
}

func (p *Progress) setPercent(v float64) {
	v = min(max(v, 0), 100)
	if v > p.Percent {
		p.Percent = v
	}
}
