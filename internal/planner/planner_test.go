package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ctxmirror/internal/fingerprint"
	"github.com/dshills/ctxmirror/pkg/types"
)

func sample() []types.Blob {
	return []types.Blob{
		{Path: "a.py", Content: "a = 1\n"},
		{Path: "b.py", Content: "b = 2\n"},
		{Path: "c.py", Content: "c = 3\n"},
	}
}

func TestPlan_ColdStart(t *testing.T) {
	blobs := sample()
	res := Plan(blobs, nil, false)

	assert.Equal(t, blobs, res.New)
	assert.Equal(t, fingerprint.All(blobs), res.All)
	assert.Equal(t, 3, res.Total())
	assert.Equal(t, 0, res.Existing())
}

func TestPlan_NoOpReindex(t *testing.T) {
	blobs := sample()
	first := Plan(blobs, nil, false)

	second := Plan(blobs, first.All, false)
	assert.Empty(t, second.New)
	assert.Equal(t, first.All, second.All)
	assert.Equal(t, 3, second.Existing())
}

func TestPlan_SingleFileChange(t *testing.T) {
	blobs := sample()
	stored := Plan(blobs, nil, false).All

	blobs[1].Content = "b = 20\n"
	res := Plan(blobs, stored, false)

	require.Len(t, res.New, 1)
	assert.Equal(t, "b.py", res.New[0].Path)
	assert.Equal(t, stored[0], res.All[0])
	assert.NotEqual(t, stored[1], res.All[1])
	assert.Equal(t, stored[2], res.All[2])
	assert.Equal(t, []string{res.All[1]}, res.NewFingerprints())
}

func TestPlan_ForceFull(t *testing.T) {
	blobs := sample()
	stored := Plan(blobs, nil, false).All

	res := Plan(blobs, stored, true)
	assert.Len(t, res.New, 3)
	assert.Equal(t, stored, res.All)
}

func TestPlan_DeletedFilesDropOut(t *testing.T) {
	blobs := sample()
	stored := Plan(blobs, nil, false).All

	res := Plan(blobs[:2], stored, false)
	assert.Empty(t, res.New)
	assert.Equal(t, stored[:2], res.All)
}

func TestPlan_Empty(t *testing.T) {
	res := Plan(nil, []string{"x"}, false)
	assert.Empty(t, res.New)
	assert.Empty(t, res.All)
	assert.Equal(t, 0, res.Total())
}
