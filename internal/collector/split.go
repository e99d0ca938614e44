package collector

import (
	"strings"

	"github.com/dshills/ctxmirror/pkg/types"
)

// splitLines splits s after each line terminator, keeping the terminators.
// "\r\n" is a single terminator; a lone "\n" or "\r" is one too. A final
// line without a terminator is kept as is.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i+1])
			start = i + 1
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// splitBlob emits one blob when content fits within maxLines, otherwise
// ceil(L/maxLines) chunk blobs whose concatenation equals content.
func splitBlob(rel, content string, maxLines int) []types.Blob {
	lines := splitLines(content)
	if maxLines < 1 || len(lines) <= maxLines {
		return []types.Blob{{Path: rel, Content: content}}
	}

	n := (len(lines) + maxLines - 1) / maxLines
	blobs := make([]types.Blob, 0, n)
	for i := 0; i < n; i++ {
		lo := i * maxLines
		hi := min(lo+maxLines, len(lines))
		blobs = append(blobs, types.Blob{
			Path:    types.ChunkPath(rel, i+1, n),
			Content: strings.Join(lines[lo:hi], ""),
		})
	}
	return blobs
}
