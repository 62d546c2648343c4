package mdblog

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/djherbis/times"
)

// Tree is the read side of a source directory. Names are slash separated
// and relative to the tree root, with "." naming the root itself.
type Tree interface {
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	Stat(name string) (fs.FileInfo, error)
	// Times returns the creation and modification instants of name.
	Times(name string) (created, modified time.Time, err error)
	// Path is the user-facing location of name, used in error messages.
	Path(name string) string
}

type fsTree struct {
	fsys fs.FS
}

// NewTree wraps any fs.FS. Both timestamps come from the entry's ModTime.
func NewTree(fsys fs.FS) Tree {
	return fsTree{fsys: fsys}
}

func (t fsTree) ReadDir(name string) ([]fs.DirEntry, error) { return fs.ReadDir(t.fsys, name) }
func (t fsTree) ReadFile(name string) ([]byte, error)       { return fs.ReadFile(t.fsys, name) }
func (t fsTree) Stat(name string) (fs.FileInfo, error)      { return fs.Stat(t.fsys, name) }
func (t fsTree) Path(name string) string                    { return name }

func (t fsTree) Times(name string) (created, modified time.Time, err error) {
	fi, err := fs.Stat(t.fsys, name)
	if err != nil {
		return
	}
	modified = fi.ModTime()
	created = modified
	return
}

type dirTree struct {
	fsTree
	root string
}

// DirTree is a Tree over a directory on disk. The creation time is the
// inode change time where the platform records one, else the birth time,
// else the modification time.
func DirTree(root string) Tree {
	return dirTree{fsTree: fsTree{fsys: os.DirFS(root)}, root: root}
}

func (t dirTree) Path(name string) string {
	return filepath.Join(t.root, filepath.FromSlash(name))
}

func (t dirTree) Times(name string) (created, modified time.Time, err error) {
	ts, err := times.Stat(t.Path(name))
	if err != nil {
		return
	}
	modified = ts.ModTime()
	switch {
	case ts.HasChangeTime():
		created = ts.ChangeTime()
	case ts.HasBirthTime():
		created = ts.BirthTime()
	default:
		created = modified
	}
	return
}
