package tasks

import (
	"context"

	"github.com/dshills/ctxmirror/pkg/types"
)

// Task is the handle of one run. Its mutators only take effect while this
// run still owns the key, so a run that was aborted or superseded cannot
// overwrite the record of a newer one.
type Task struct {
	m   *Manager
	key string
	id  string
	ctx context.Context
}

// Context is cancelled when the run is aborted or terminates.
func (t *Task) Context() context.Context { return t.ctx }

// ID identifies this run.
func (t *Task) ID() string { return t.id }

// Key is the project key the run belongs to.
func (t *Task) Key() string { return t.key }

// SetPhase moves the run to phase.
func (t *Task) SetPhase(phase types.Phase) {
	t.m.update(t.key, t.id, func(p *Progress) { p.Phase = phase })
}

// SetUploadTotals records the sizes computed by planning.
func (t *Task) SetUploadTotals(newTotal, chunksTotal, total int) {
	t.m.update(t.key, t.id, setTotals(newTotal, chunksTotal, total))
}

// OnChunk records a completed batch.
func (t *Task) OnChunk(uploaded, chunkIndex, chunkBytes int) {
	t.m.update(t.key, t.id, onChunk(uploaded, chunkIndex, chunkBytes))
}

// Commit claims the run for persisting its result. After it returns true
// Abort no longer affects the run. It returns false when the run was
// aborted or superseded first.
func (t *Task) Commit() bool {
	return t.m.commit(t.key, t.id)
}

// Finish marks the run done. It returns false if the run no longer owns
// the key.
func (t *Task) Finish() bool {
	return t.m.terminate(t.key, t.id, types.PhaseDone, "")
}

// Fail marks the run failed with msg.
func (t *Task) Fail(msg string) bool {
	return t.m.terminate(t.key, t.id, types.PhaseFailed, msg)
}

// Abort marks the run aborted from inside, for example when the context
// of a synchronous caller was cancelled.
func (t *Task) Abort() bool {
	return t.m.terminate(t.key, t.id, types.PhaseAborted, "")
}
