package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/ctxmirror/internal/tasks"
	"github.com/dshills/ctxmirror/pkg/types"
)

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("short"))
	assert.Equal(t, "abcd****wxyz", maskToken("abcdefghijklmnopqrstuvwxyz"))
}

func TestProgressLine(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, " collecting", progressLine(tasks.Progress{Phase: types.PhaseCollecting}))

	line := progressLine(tasks.Progress{
		Phase:       types.PhaseUploading,
		ChunkIndex:  2,
		ChunksTotal: 5,
		Uploaded:    4,
		NewTotal:    10,
		Percent:     40,
		StartedAt:   start,
		UpdatedAt:   start.Add(10 * time.Second),
	})
	assert.Equal(t, " uploading batch 2/5, 4/10 blobs (40%), eta 15s", line)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "index", "search", "status", "stop", "watch", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
