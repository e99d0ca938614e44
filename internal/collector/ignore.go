package collector

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
)

// scopedMatcher applies gitignore rules relative to the directory that
// declared them. An empty baseDir means the project root.
type scopedMatcher struct {
	matcher *ignore.GitIgnore
	baseDir string
	source  string
}

// Matcher decides whether a project-relative path is excluded. Rules come
// from explicit patterns, the user's global ignore file, the repository's
// .git/info/exclude and every .gitignore seen so far during a walk.
type Matcher struct {
	fs     afero.Fs
	root   string
	scoped []scopedMatcher
}

func newMatcher(fs afero.Fs, root string, exclude []string, globalIgnore string) *Matcher {
	m := &Matcher{fs: fs, root: root}

	if len(exclude) > 0 {
		m.scoped = append(m.scoped, scopedMatcher{
			matcher: ignore.CompileIgnoreLines(exclude...),
			source:  "exclude patterns",
		})
	}

	if globalIgnore != "" {
		m.addFile(expandTilde(globalIgnore), "")
	}
	m.addFile(filepath.Join(root, ".git", "info", "exclude"), "")

	return m
}

// addFile compiles an ignore file scoped to baseDir. Missing or unreadable
// files are skipped.
func (m *Matcher) addFile(file, baseDir string) {
	data, err := afero.ReadFile(m.fs, file)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Debugf("skipping ignore file %s: %v", file, err)
		}
		return
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	m.scoped = append(m.scoped, scopedMatcher{
		matcher: ignore.CompileIgnoreLines(lines...),
		baseDir: baseDir,
		source:  file,
	})
}

// Ignored reports whether rel (slash separated, relative to the root) is
// excluded by any loaded rule.
func (m *Matcher) Ignored(rel string, isDir bool) bool {
	for _, sm := range m.scoped {
		r := scopedRel(rel, sm.baseDir)
		if r == "" {
			continue
		}
		if sm.matcher.MatchesPath(r) {
			return true
		}
		if isDir && sm.matcher.MatchesPath(r+"/") {
			return true
		}
	}
	return false
}

// scopedRel returns rel relative to baseDir, or "" when rel lies outside it.
func scopedRel(rel, baseDir string) string {
	if baseDir == "" {
		return rel
	}
	if strings.HasPrefix(rel, baseDir+"/") {
		return strings.TrimPrefix(rel, baseDir+"/")
	}
	return ""
}

// DefaultGlobalIgnoreFile locates git's user-level excludes file.
func DefaultGlobalIgnoreFile() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "git", "ignore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "git", "ignore")
}

func expandTilde(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}
