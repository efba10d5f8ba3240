// Package pathmodel implements the archive-root rebase rule: an absolute
// input path is rebased to its parent directory so the produced archive
// entries never leak absolute paths.
package pathmodel

import (
	"fmt"
	"path/filepath"
)

// Resolved is the outcome of resolving an input path for archival.
type Resolved struct {
	// WorkDir is the directory archival should chdir/resolve relative paths
	// against.
	WorkDir string
	// ArchiveRoot is the top-level path component every tar entry is
	// rooted under.
	ArchiveRoot string
}

// Resolve applies the rebase rule to input:
//
//   - absolute input "/a/b/c"  -> WorkDir="/a/b",  ArchiveRoot="c"
//   - relative input "a/b"     -> WorkDir=".",      ArchiveRoot="a/b"
func Resolve(input string) (Resolved, error) {
	if input == "" {
		return Resolved{}, fmt.Errorf("pathmodel: empty path")
	}

	cleaned := filepath.Clean(input)
	if cleaned == "/" || cleaned == "." {
		return Resolved{}, fmt.Errorf("pathmodel: %q has no archive root name", input)
	}

	if filepath.IsAbs(cleaned) {
		return Resolved{
			WorkDir:     filepath.Dir(cleaned),
			ArchiveRoot: filepath.Base(cleaned),
		}, nil
	}

	return Resolved{
		WorkDir:     ".",
		ArchiveRoot: cleaned,
	}, nil
}
