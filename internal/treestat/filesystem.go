package treestat

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem abstracts filesystem interactions so tests can provide in-memory implementations.
type FileSystem interface {
	Open(name string) (fs.File, error)
	Stat(name string) (fs.FileInfo, error)
	WalkDir(root string, fn fs.WalkDirFunc) error
}

// OSFileSystem implements FileSystem using the local OS filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Open(name string) (fs.File, error) {
	return os.Open(name)
}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// WalkDir walks root like filepath.WalkDir, except that a root which is a
// symlink to a directory is followed. Paths are still reported under root.
func (OSFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	info, err := os.Lstat(root)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return filepath.WalkDir(root, fn)
	}
	target, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fn(root, nil, err)
	}
	return filepath.WalkDir(target, func(p string, d fs.DirEntry, err error) error {
		rel, relErr := filepath.Rel(target, p)
		if relErr != nil {
			return relErr
		}
		return fn(filepath.Join(root, rel), d, err)
	})
}

func readFileFrom(filesystem FileSystem, name string) ([]byte, error) {
	f, err := filesystem.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
