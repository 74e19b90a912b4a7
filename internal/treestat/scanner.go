package treestat

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// WalkOptions control which files CollectFiles returns.
type WalkOptions struct {
	// ExcludeDirs are directory base names (or root-relative paths when they
	// contain a slash) that are pruned from the walk.
	ExcludeDirs []string
	// UseGitignore honors .gitignore files found in the tree.
	UseGitignore bool
	// SkipPaths are root-relative, slash separated file paths that are never returned.
	SkipPaths []string
	// OnSkip is notified about entries that could not be read.
	OnSkip func(relPath string, err error)
}

// CollectFiles walks the root directory and returns the relative paths of
// regular files while skipping excluded directories. Paths are slash
// separated and sorted.
func CollectFiles(filesystem FileSystem, root string, opts WalkOptions) ([]string, error) {
	excludes := newExcludeSet(opts.ExcludeDirs)

	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		clean := strings.Trim(filepath.ToSlash(strings.TrimSpace(p)), "/")
		if clean == "" {
			continue
		}
		skip[path.Clean(clean)] = struct{}{}
	}

	var ignore *gitignoreRules
	if opts.UseGitignore {
		ignore = &gitignoreRules{}
	}

	notify := func(rel string, err error) {
		if opts.OnSkip != nil {
			opts.OnSkip(rel, err)
		}
	}

	var files []string
	err := filesystem.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		rel, relErr := relativeTo(root, p)
		if relErr != nil {
			return relErr
		}
		if err != nil {
			if rel == "." {
				return err
			}
			notify(rel, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if rel != "." && (excludes.matches(rel) || ignore.ignored(rel, true)) {
				return fs.SkipDir
			}
			if ignore != nil {
				loadGitignore(filesystem, p, rel, ignore, notify)
			}
			return nil
		}

		if _, ok := skip[rel]; ok {
			return nil
		}
		if ignore.ignored(rel, false) {
			return nil
		}

		mode := d.Type()
		if mode&fs.ModeSymlink != 0 {
			info, statErr := filesystem.Stat(p)
			if statErr != nil {
				notify(rel, statErr)
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
		} else if !mode.IsRegular() {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func loadGitignore(filesystem FileSystem, dirPath, relDir string, rules *gitignoreRules, notify func(string, error)) {
	name := filepath.Join(dirPath, ".gitignore")
	content, err := readFileFrom(filesystem, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			notify(path.Join(relDir, ".gitignore"), err)
		}
		return
	}
	rules.load(relDir, content)
}

func relativeTo(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
