package collector

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ctxmirror/pkg/types"
)

const root = "/proj"

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, root+"/"+name, []byte(content), 0644))
	}
}

func paths(blobs []types.Blob) []string {
	out := make([]string, len(blobs))
	for i, b := range blobs {
		out[i] = b.Path
	}
	return out
}

func TestCollect_ExcludeAndIgnore(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		".gitignore":         "ignored_dir/\n",
		"src/main.x":         "line one\nline two\n",
		"src/notes.y":        "only line\n",
		"dist/bundle.z":      "bundle\n",
		"ignored_dir/skip.y": "skip\n",
	})

	c := NewWithFs(fs, Options{
		Extensions: []string{"x", "y"},
		MaxLines:   1,
		Exclude:    []string{"dist"},
	})
	blobs, err := c.Collect(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"src/main.x#chunk1of2",
		"src/main.x#chunk2of2",
		"src/notes.y",
	}, paths(blobs))
	assert.Equal(t, "line one\n", blobs[0].Content)
	assert.Equal(t, "line two\n", blobs[1].Content)
}

func TestCollect_NestedGitignoreIsScoped(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"a/.gitignore":  "*.log.txt\n",
		"a/x.log.txt":   "hidden\n",
		"a/keep.txt":    "kept\n",
		"b/y.log.txt":   "visible\n",
		".git/HEAD.txt": "ref\n",
	})

	c := NewWithFs(fs, Options{Extensions: []string{".txt"}})
	blobs, err := c.Collect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/keep.txt", "b/y.log.txt"}, paths(blobs))
}

func TestCollect_GitInfoExcludeAndGlobalIgnore(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		".git/info/exclude": "local.md\n",
		"local.md":          "x\n",
		"global.md":         "x\n",
		"README.md":         "x\n",
	})
	require.NoError(t, afero.WriteFile(fs, "/home/u/.config/git/ignore", []byte("global.md\n"), 0644))

	c := NewWithFs(fs, Options{
		Extensions:       []string{".md"},
		GlobalIgnoreFile: "/home/u/.config/git/ignore",
	})
	blobs, err := c.Collect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, paths(blobs))
}

func TestCollect_ExtensionCaseInsensitive(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"Main.GO":   "package main\n",
		"image.png": "\x89PNG",
	})

	c := NewWithFs(fs, Options{Extensions: []string{".go"}})
	blobs, err := c.Collect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"Main.GO"}, paths(blobs))
}

func TestCollect_LexicalOrderAcrossWorkers(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{}
	for _, n := range []string{"c", "a", "b", "d/e", "d/a", "f"} {
		files[n+".txt"] = n + "\n"
	}
	writeFiles(t, fs, files)

	c := NewWithFs(fs, Options{Extensions: []string{".txt"}, Workers: 4})
	blobs, err := c.Collect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt", "d/a.txt", "d/e.txt", "f.txt"}, paths(blobs))
}

func TestCollect_ChunksRoundTrip(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 25; i++ {
		sb.WriteString("line\r\n")
	}
	sb.WriteString("tail without newline")
	content := sb.String()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"big.txt": content})

	c := NewWithFs(fs, Options{Extensions: []string{".txt"}, MaxLines: 10})
	blobs, err := c.Collect(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, blobs, 3)

	var joined strings.Builder
	for i, b := range blobs {
		assert.Equal(t, types.ChunkPath("big.txt", i+1, 3), b.Path)
		joined.WriteString(b.Content)
	}
	assert.Equal(t, content, joined.String())
}

func TestCollect_EmptyFileYieldsOneBlob(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"empty.txt": ""})

	c := NewWithFs(fs, Options{Extensions: []string{".txt"}})
	blobs, err := c.Collect(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, types.Blob{Path: "empty.txt"}, blobs[0])
}

func TestCollect_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"file.txt": "x"})
	c := NewWithFs(fs, Options{})

	t.Run("missing root", func(t *testing.T) {
		_, err := c.Collect(context.Background(), "/nope")
		assert.ErrorIs(t, err, types.ErrProjectNotFound)
	})

	t.Run("root is a file", func(t *testing.T) {
		_, err := c.Collect(context.Background(), root+"/file.txt")
		assert.ErrorIs(t, err, types.ErrNotDirectory)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Collect(ctx, root)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty project", func(t *testing.T) {
		require.NoError(t, fs.MkdirAll("/empty", 0755))
		blobs, err := c.Collect(context.Background(), "/empty")
		require.NoError(t, err)
		assert.Empty(t, blobs)
	})
}

func TestDirs_SkipsIgnored(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"src/pkg/a.go":          "a",
		"node_modules/x/y.js":   "y",
		".git/objects/ab/cd.go": "z",
	})

	c := NewWithFs(fs, Options{Exclude: DefaultExclude})
	dirs, err := c.Dirs(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{root, root + "/src", root + "/src/pkg"}, dirs)
}

func TestNormalizeExtensions(t *testing.T) {
	set := NormalizeExtensions([]string{"Py", ".TS", " go ", ""})
	assert.Len(t, set, 3)
	assert.Contains(t, set, ".py")
	assert.Contains(t, set, ".ts")
	assert.Contains(t, set, ".go")
}
