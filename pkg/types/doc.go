// Package types provides the definitions shared by every stage of the
// indexing pipeline.
//
// Blob is the transient unit of upload. A file longer than the configured
// line limit is split into several blobs whose paths carry a chunk suffix:
//
//	types.ChunkPath("src/main.go", 2, 3) // "src/main.go#chunk2of3"
//
// Phase names the lifecycle stage of a background indexing task, from
// PhaseStarting through one of the terminal phases PhaseDone, PhaseFailed
// or PhaseAborted.
//
// The error variables form the failure taxonomy of the pipeline. They are
// always wrapped with context, so test for them with errors.Is:
//
//	if errors.Is(err, types.ErrIndexingInProgress) {
//	    // report "accepted" and let the caller poll
//	}
package types
