// Package tree defines the in-memory directory tree data model shared by the
// walker, index codec, and hash engine. A Tree is a tagged variant: each Entry
// is either a File or a Directory, never both, dispatched on Kind rather than
// through an interface hierarchy.
package tree

import (
	"os"
	"sort"
)

// EntryKind distinguishes File and Directory entries.
type EntryKind uint8

const (
	// KindFile marks a regular file or symlink leaf.
	KindFile EntryKind = iota
	// KindDirectory marks a directory with ordered children.
	KindDirectory
)

// HashSize is the width in bytes of a content or directory digest.
const HashSize = 32

// FileMeta holds the metadata slots for a File entry. Slots are empty
// (Size == -1 as set by NewFile, other slots zero, HasHash == false) in an
// .etr tree and populated in an .idx tree.
type FileMeta struct {
	Size          int64
	Mtime         int64
	Mode          uint32
	UID           uint32
	GID           uint32
	ContentHash   [HashSize]byte
	HasHash       bool
	Missing       bool
	IsSymlink     bool
	SymlinkTarget string
}

// DirMeta holds the Merkle hash and aggregate counters for a Directory entry.
// Populated only in an .idx tree.
type DirMeta struct {
	DirHash        [HashSize]byte
	HasHash        bool
	AggregateFiles int64
	AggregateDirs  int64
	AggregateBytes int64
}

// Entry is a node in the tree: either a File (Kind == KindFile) or a
// Directory (Kind == KindDirectory). Only the fields matching Kind are
// meaningful.
type Entry struct {
	Name     string
	Kind     EntryKind
	File     FileMeta
	Dir      DirMeta
	Children []*Entry
}

// NewFile builds an empty (unhashed) file entry with Size/ContentHash absent.
func NewFile(name string) *Entry {
	return &Entry{Name: name, Kind: KindFile, File: FileMeta{Size: -1}}
}

// NewDir builds an empty directory entry with no children yet.
func NewDir(name string) *Entry {
	return &Entry{Name: name, Kind: KindDirectory}
}

// SortChildren orders Children lexicographically by Name, the deterministic
// order required for well-defined Merkle hashing.
func (e *Entry) SortChildren() {
	sort.Slice(e.Children, func(i, j int) bool { return e.Children[i].Name < e.Children[j].Name })
}

// AddChild appends a child and keeps Children sorted by Name.
func (e *Entry) AddChild(child *Entry) {
	e.Children = append(e.Children, child)
	e.SortChildren()
}

// Tree is the root container: an absolute path captured at walk time plus
// the root Directory entry, and the hash algorithm tag used for any
// populated digests.
type Tree struct {
	RootAbsPath string
	Root        *Entry
	HashAlgo    uint8
}

// EncodeMode folds os.FileMode's symlink type bit and permission bits into
// the uint32 stored in FileMeta.Mode, so a symlink's Mode is distinguishable
// from a regular file's by its high bit without consulting IsSymlink.
func EncodeMode(m os.FileMode) uint32 {
	enc := uint32(m.Perm())
	if m&os.ModeSymlink != 0 {
		enc |= 1 << 31
	}
	return enc
}

// Kind reports "etr" if no optional slots are populated anywhere in the
// tree, or "idx" if the root directory's hash (and by invariant everything
// beneath it) has been filled in by the hash engine.
func (t *Tree) Kind() string {
	if t.Root != nil && t.Root.Dir.HasHash {
		return "idx"
	}
	return "etr"
}

// Walk visits every entry in pre-order, calling fn(path, entry) where path
// uses "/" separators relative to the tree root ("" for the root itself).
func (t *Tree) Walk(fn func(path string, e *Entry)) {
	if t.Root == nil {
		return
	}
	var rec func(prefix string, e *Entry)
	rec = func(prefix string, e *Entry) {
		fn(prefix, e)
		for _, c := range e.Children {
			childPath := c.Name
			if prefix != "" {
				childPath = prefix + "/" + c.Name
			}
			rec(childPath, c)
		}
	}
	rec("", t.Root)
}

// Leaves returns every File entry in depth-first pre-order, together with
// its path relative to the tree root.
func (t *Tree) Leaves() []LeafRef {
	var out []LeafRef
	t.Walk(func(path string, e *Entry) {
		if e.Kind == KindFile {
			out = append(out, LeafRef{Path: path, Entry: e})
		}
	})
	return out
}

// LeafRef pairs a File entry with its path relative to the tree root.
type LeafRef struct {
	Path  string
	Entry *Entry
}

// EmptyDirs returns the relative path of every Directory entry with no
// children. Archival dispatches these alongside file leaves so that
// directories containing no files are still preserved as tar entries; a
// file leaf's path-prefix emission alone would never reach them.
func (t *Tree) EmptyDirs() []string {
	var out []string
	t.Walk(func(path string, e *Entry) {
		if e.Kind == KindDirectory && len(e.Children) == 0 && path != "" {
			out = append(out, path)
		}
	})
	return out
}
