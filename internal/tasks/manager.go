// Package tasks tracks background indexing runs: at most one live run per
// project key, its progress, and cooperative cancellation.
package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/dshills/ctxmirror/pkg/types"
)

var log = logging.Logger("tasks")

type handle struct {
	id         string
	cancel     context.CancelFunc
	committing bool
}

// Manager is the process-wide task registry. Every method holds the lock
// only for an in-memory update.
type Manager struct {
	mu       sync.Mutex
	running  map[string]handle
	progress map[string]*Progress
	now      func() time.Time
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{
		running:  make(map[string]handle),
		progress: make(map[string]*Progress),
		now:      time.Now,
	}
}

// Begin atomically registers a run for key. It returns false when a run is
// already live. The returned Task carries a context derived from parent
// that Abort cancels. A previous terminal record for key is replaced.
func (m *Manager) Begin(parent context.Context, key string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, live := m.running[key]; live {
		return nil, false
	}

	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	now := m.now()
	m.running[key] = handle{id: id, cancel: cancel}
	m.progress[key] = &Progress{
		TaskID:    id,
		Phase:     types.PhaseStarting,
		StartedAt: now,
		UpdatedAt: now,
	}

	log.Debugw("task started", "key", key, "task", id)
	return &Task{m: m, key: key, id: id, ctx: ctx}, true
}

// update applies fn to key's record. A non-empty id restricts the update
// to the run that currently owns the key. Terminal records are final until
// the next Begin.
func (m *Manager) update(key, id string, fn func(p *Progress)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(key, id, fn)
}

func (m *Manager) updateLocked(key, id string, fn func(p *Progress)) bool {
	if id != "" {
		h, live := m.running[key]
		if !live || h.id != id {
			return false
		}
	}
	p, ok := m.progress[key]
	if !ok || p.Phase.Terminal() {
		return false
	}
	fn(p)
	p.UpdatedAt = m.now()
	return true
}

// SetPhase moves key's record to phase.
func (m *Manager) SetPhase(key string, phase types.Phase) {
	m.update(key, "", func(p *Progress) { p.Phase = phase })
}

// SetUploadTotals records the sizes computed by planning.
func (m *Manager) SetUploadTotals(key string, newTotal, chunksTotal, total int) {
	m.update(key, "", setTotals(newTotal, chunksTotal, total))
}

// OnChunk records a completed batch.
func (m *Manager) OnChunk(key string, uploaded, chunkIndex, chunkBytes int) {
	m.update(key, "", onChunk(uploaded, chunkIndex, chunkBytes))
}

// Finish marks key done and releases its handle.
func (m *Manager) Finish(key string) {
	m.terminate(key, "", types.PhaseDone, "")
}

// Fail marks key failed with msg and releases its handle.
func (m *Manager) Fail(key, msg string) {
	m.terminate(key, "", types.PhaseFailed, msg)
}

// Abort cancels the live run for key. It returns false when none is live,
// so a second call for the same run is a no-op. A run that has already
// committed its result is not abortable either.
func (m *Manager) Abort(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, live := m.running[key]
	if !live {
		return false
	}
	if h.committing {
		log.Debugw("abort ignored, task is committing", "key", key, "task", h.id)
		return false
	}
	delete(m.running, key)
	h.cancel()
	if p, ok := m.progress[key]; ok {
		p.Phase = types.PhaseAborted
		p.UpdatedAt = m.now()
	}
	log.Infow("task aborted", "key", key, "task", h.id)
	return true
}

// IsRunning reports whether key has a live run.
func (m *Manager) IsRunning(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, live := m.running[key]
	return live
}

// Get returns a copy of key's latest record.
func (m *Manager) Get(key string) (Progress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[key]
	if !ok {
		return Progress{}, false
	}
	return *p, true
}

// Entry pairs a key with its record.
type Entry struct {
	Key      string   `json:"key"`
	Running  bool     `json:"running"`
	Progress Progress `json:"progress"`
}

// Snapshot returns every known record ordered by key.
func (m *Manager) Snapshot() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.progress))
	for k, p := range m.progress {
		_, live := m.running[k]
		out = append(out, Entry{Key: k, Running: live, Progress: *p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (m *Manager) commit(key, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, live := m.running[key]
	if !live || h.id != id {
		return false
	}
	h.committing = true
	m.running[key] = h
	return true
}

func (m *Manager) terminate(key, id string, phase types.Phase, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok := m.updateLocked(key, id, func(p *Progress) {
		p.Phase = phase
		if phase == types.PhaseDone {
			p.setPercent(100)
		}
		if msg != "" {
			p.Message = msg
		}
	})
	if !ok {
		return false
	}
	if h, live := m.running[key]; live && (id == "" || h.id == id) {
		delete(m.running, key)
		h.cancel()
	}
	return true
}

func setTotals(newTotal, chunksTotal, total int) func(p *Progress) {
	return func(p *Progress) {
		p.NewTotal = newTotal
		p.ChunksTotal = chunksTotal
		p.Total = total
	}
}

func onChunk(uploaded, chunkIndex, chunkBytes int) func(p *Progress) {
	return func(p *Progress) {
		p.Phase = types.PhaseUploading
		p.Uploaded = uploaded
		p.ChunkIndex = chunkIndex
		p.ChunkBytes = chunkBytes
		p.BytesUploaded += int64(chunkBytes)
		if p.NewTotal == 0 {
			p.setPercent(100)
		} else {
			p.setPercent(float64(uploaded) * 100 / float64(p.NewTotal))
		}
	}
}
