package types

// Phase is the lifecycle stage of an indexing task.
type Phase string

const (
	PhaseStarting   Phase = "starting"
	PhaseCollecting Phase = "collecting"
	PhaseUploading  Phase = "uploading"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
	PhaseAborted    Phase = "aborted"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseDone, PhaseFailed, PhaseAborted:
		return true
	}
	return false
}
