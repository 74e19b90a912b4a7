package treestat

import (
	"bufio"
	"bytes"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultExcludeDirs are directory names pruned from every walk unless disabled.
var DefaultExcludeDirs = []string{
	".git", "node_modules", "venv", ".venv", "env", ".env", "build", "dist",
	"__pycache__", ".idea", ".vscode", "vendor", "bin", "obj", "target", ".mypy_cache",
}

// excludeSet matches directories either by base name at any depth or, for
// entries containing a slash, by their path relative to the root.
type excludeSet struct {
	names map[string]struct{}
	paths map[string]struct{}
}

func newExcludeSet(dirs []string) excludeSet {
	set := excludeSet{
		names: make(map[string]struct{}, len(dirs)),
		paths: make(map[string]struct{}),
	}
	for _, dir := range dirs {
		clean := strings.Trim(strings.TrimSpace(dir), "/")
		if clean == "" {
			continue
		}
		if strings.Contains(clean, "/") {
			set.paths[path.Clean(clean)] = struct{}{}
			continue
		}
		set.names[clean] = struct{}{}
	}
	return set
}

// matches reports whether the slash separated relative directory path is excluded.
func (s excludeSet) matches(relDir string) bool {
	if relDir == "" || relDir == "." {
		return false
	}
	if _, ok := s.names[path.Base(relDir)]; ok {
		return true
	}
	_, ok := s.paths[relDir]
	return ok
}

// containsPath reports whether relPath lies at or below an excluded directory.
func (s excludeSet) containsPath(relPath string) bool {
	relPath = strings.Trim(relPath, "/")
	for relPath != "" && relPath != "." {
		if s.matches(relPath) {
			return true
		}
		relPath = path.Dir(relPath)
	}
	return false
}

// gitignoreRules accumulates patterns from .gitignore files discovered while walking.
type gitignoreRules struct {
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
}

// load parses the contents of a .gitignore file that lives in relDir.
func (g *gitignoreRules) load(relDir string, content []byte) {
	var domain []string
	if relDir != "" && relDir != "." {
		domain = strings.Split(relDir, "/")
	}
	parsed := parseIgnorePatterns(content, domain)
	if len(parsed) == 0 {
		return
	}
	g.patterns = append(g.patterns, parsed...)
	g.matcher = gitignore.NewMatcher(g.patterns)
}

func (g *gitignoreRules) ignored(relPath string, isDir bool) bool {
	if g == nil || g.matcher == nil || relPath == "" || relPath == "." {
		return false
	}
	return g.matcher.Match(strings.Split(relPath, "/"), isDir)
}

func parseIgnorePatterns(content []byte, domain []string) []gitignore.Pattern {
	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, domain))
	}
	return patterns
}
