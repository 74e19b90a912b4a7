package treestat

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"testing/fstest"
)

// memFileSystem serves FileSystem calls from an in-memory tree. Paths given
// to it are relative to the analyzed root ".".
type memFileSystem fstest.MapFS

func newMapFileSystem(files map[string]string) memFileSystem {
	tree := make(memFileSystem, len(files)+1)
	tree["."] = &fstest.MapFile{Mode: fs.ModeDir | 0o755}
	for name, data := range files {
		tree[memPath(name)] = &fstest.MapFile{Mode: 0o644, Data: []byte(data)}
	}
	return tree
}

func (m memFileSystem) Open(name string) (fs.File, error) {
	return fstest.MapFS(m).Open(memPath(name))
}

func (m memFileSystem) Stat(name string) (fs.FileInfo, error) {
	return fs.Stat(fstest.MapFS(m), memPath(name))
}

func (m memFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return fs.WalkDir(fstest.MapFS(m), memPath(root), fn)
}

// memPath converts an OS path into the slash separated form fs.FS expects.
func memPath(name string) string {
	clean := path.Clean(strings.TrimPrefix(filepath.ToSlash(name), "/"))
	if clean == "" {
		return "."
	}
	return clean
}
