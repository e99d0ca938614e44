package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/ctxmirror/pkg/types"
)

var log = logging.Logger("collector")

const (
	// DefaultMaxLines is the largest number of lines a single blob may hold.
	DefaultMaxLines = 800

	gitDir        = ".git"
	gitignoreFile = ".gitignore"
)

// DefaultExtensions is the allowlist used when none is configured.
var DefaultExtensions = []string{
	".py", ".js", ".ts", ".jsx", ".tsx", ".java", ".go", ".rs", ".cpp", ".c",
	".h", ".hpp", ".cs", ".rb", ".php", ".md", ".txt", ".json", ".yaml", ".yml",
	".toml", ".xml", ".html", ".css", ".scss", ".sql", ".sh", ".bash",
}

// DefaultExclude holds gitignore-style patterns excluded unless overridden.
var DefaultExclude = []string{
	".venv", "venv", ".env", "env", "node_modules", ".git", ".svn", ".hg",
	"__pycache__", ".pytest_cache", ".mypy_cache", ".tox", ".eggs", "*.egg-info",
	"dist", "build", ".idea", ".vscode", ".DS_Store", "*.pyc", "*.pyo", "*.pyd",
	".Python", "pip-log.txt", "pip-delete-this-directory.txt", ".coverage",
	"htmlcov", ".gradle", "target", "bin", "obj",
}

// Options configures a Collector.
type Options struct {
	Extensions       []string // allowlist, case-insensitive, leading dot optional
	MaxLines         int      // lines per blob before a file is split
	Exclude          []string // gitignore-style patterns applied from the root
	GlobalIgnoreFile string   // user-level ignore file; empty disables
	Workers          int      // parallel readers; defaults to GOMAXPROCS
}

// Collector walks a project and turns its text files into blobs.
type Collector struct {
	fs   afero.Fs
	opts Options
	exts map[string]struct{}
}

// New creates a Collector over the OS filesystem.
func New(opts Options) *Collector {
	return NewWithFs(afero.NewOsFs(), opts)
}

// NewWithFs creates a Collector over an arbitrary filesystem.
func NewWithFs(fs afero.Fs, opts Options) *Collector {
	if opts.MaxLines < 1 {
		opts.MaxLines = DefaultMaxLines
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Extensions == nil {
		opts.Extensions = DefaultExtensions
	}
	return &Collector{
		fs:   fs,
		opts: opts,
		exts: NormalizeExtensions(opts.Extensions),
	}
}

// NormalizeExtensions lowercases entries and adds a missing leading dot.
func NormalizeExtensions(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}

// Accepts reports whether a file name passes the extension allowlist.
func (c *Collector) Accepts(name string) bool {
	_, ok := c.exts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Collect walks root and returns blobs in lexical walk order. Files longer
// than MaxLines become several chunk blobs. An empty result is not an error.
func (c *Collector) Collect(ctx context.Context, root string) ([]types.Blob, error) {
	var files []string
	err := c.walk(ctx, root, func(rel string, isDir bool) {
		if !isDir {
			files = append(files, rel)
		}
	})
	if err != nil {
		return nil, err
	}

	results := make([][]types.Blob, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.readBlob(root, rel)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var blobs []types.Blob
	for _, r := range results {
		blobs = append(blobs, r...)
	}
	log.Debugw("collected blobs", "root", root, "files", len(files), "blobs", len(blobs))
	return blobs, nil
}

// Dirs returns the absolute paths of root and every directory beneath it
// that the ignore rules keep.
func (c *Collector) Dirs(ctx context.Context, root string) ([]string, error) {
	dirs := []string{root}
	err := c.walk(ctx, root, func(rel string, isDir bool) {
		if isDir {
			dirs = append(dirs, filepath.Join(root, filepath.FromSlash(rel)))
		}
	})
	return dirs, err
}

// Matcher builds the root-level ignore rules for root. Nested .gitignore
// files are not included; those are loaded by a walk.
func (c *Collector) Matcher(root string) *Matcher {
	return newMatcher(c.fs, root, c.opts.Exclude, c.opts.GlobalIgnoreFile)
}

func (c *Collector) walk(ctx context.Context, root string, visit func(rel string, isDir bool)) error {
	info, err := c.fs.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", types.ErrProjectNotFound, root)
		}
		return fmt.Errorf("stat project root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", types.ErrNotDirectory, root)
	}

	return c.walkDir(ctx, root, "", c.Matcher(root), visit)
}

func (c *Collector) walkDir(ctx context.Context, root, rel string, m *Matcher, visit func(string, bool)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(root, filepath.FromSlash(rel))
	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		if rel == "" {
			return fmt.Errorf("read project root: %w", err)
		}
		log.Debugf("skipping unreadable directory %s: %v", dir, err)
		return nil
	}

	for _, e := range entries {
		if e.Name() == gitignoreFile && e.Mode().IsRegular() {
			m.addFile(filepath.Join(dir, gitignoreFile), rel)
			break
		}
	}

	for _, e := range entries {
		childRel := joinRel(rel, e.Name())
		switch {
		case e.IsDir():
			if e.Name() == gitDir || m.Ignored(childRel, true) {
				continue
			}
			visit(childRel, true)
			if err := c.walkDir(ctx, root, childRel, m, visit); err != nil {
				return err
			}
		case e.Mode().IsRegular():
			if !c.Accepts(e.Name()) || m.Ignored(childRel, false) {
				continue
			}
			visit(childRel, false)
		}
	}
	return nil
}

// readBlob reads and decodes one file. Unreadable files yield no blobs.
func (c *Collector) readBlob(root, rel string) []types.Blob {
	data, err := afero.ReadFile(c.fs, filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		log.Debugf("skipping unreadable file %s: %v", rel, err)
		return nil
	}
	text, enc := decode(data)
	if enc != "utf-8" {
		log.Debugw("decoded with fallback encoding", "path", rel, "encoding", enc)
	}
	return splitBlob(rel, text, c.opts.MaxLines)
}
