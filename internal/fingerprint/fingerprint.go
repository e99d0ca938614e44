// Package fingerprint derives content-addressed identifiers for blobs.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dshills/ctxmirror/pkg/types"
)

// Compute returns the lowercase hex SHA-256 of the path bytes followed by
// the content bytes. No separator is written between the two.
func Compute(path, content string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// Blob fingerprints a single blob.
func Blob(b types.Blob) string {
	return Compute(b.Path, b.Content)
}

// All fingerprints blobs, preserving order.
func All(blobs []types.Blob) []string {
	out := make([]string, len(blobs))
	for i, b := range blobs {
		out[i] = Blob(b)
	}
	return out
}
