// Package planner decides which blobs must be uploaded for a project.
package planner

import (
	"github.com/dshills/ctxmirror/internal/fingerprint"
	"github.com/dshills/ctxmirror/pkg/types"
)

// Result partitions a collection against the stored index.
type Result struct {
	// New holds the blobs whose fingerprints are not stored yet, in
	// collection order.
	New []types.Blob
	// All is the full post-sync fingerprint list; All[i] belongs to the
	// i-th collected blob.
	All []string
}

// Total returns the number of collected blobs.
func (r Result) Total() int { return len(r.All) }

// Existing returns the number of collected blobs that need no upload.
func (r Result) Existing() int { return len(r.All) - len(r.New) }

// NewFingerprints returns the fingerprints of New.
func (r Result) NewFingerprints() []string {
	return fingerprint.All(r.New)
}

// Plan fingerprints blobs and selects those absent from stored. With
// forceFull every blob is considered new.
func Plan(blobs []types.Blob, stored []string, forceFull bool) Result {
	known := make(map[string]struct{}, len(stored))
	if !forceFull {
		for _, fp := range stored {
			known[fp] = struct{}{}
		}
	}

	res := Result{All: make([]string, len(blobs))}
	for i, b := range blobs {
		fp := fingerprint.Blob(b)
		res.All[i] = fp
		if _, ok := known[fp]; !ok {
			res.New = append(res.New, b)
		}
	}
	return res
}
