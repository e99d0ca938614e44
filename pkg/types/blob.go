package types

import "fmt"

// Blob is a unit of upload: a project-relative path and its decoded text.
// Paths always use forward slashes. Chunks of a split file carry a
// "#chunk{i}of{n}" suffix.
type Blob struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ChunkPath returns the blob path of the i-th (1-indexed) of n chunks of rel.
func ChunkPath(rel string, i, n int) string {
	return fmt.Sprintf("%s#chunk%dof%d", rel, i, n)
}

// Size returns the content length in bytes.
func (b Blob) Size() int {
	return len(b.Content)
}
