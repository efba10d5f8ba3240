// Package walker implements the single-threaded recursive directory walk
// that produces an empty Tree. Parallel walking is deliberately avoided:
// disk seeks dominate a cold walk, so splitting the traversal across
// threads buys little over reading metadata during the hash phase
// (internal/hashengine), which is where the real parallelism budget goes.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JBlaschke/parallel-tar/internal/ignore"
	"github.com/JBlaschke/parallel-tar/internal/logger"
	"github.com/JBlaschke/parallel-tar/internal/tree"
)

// Options configures a walk.
type Options struct {
	// Exclude is a list of gitignore-style patterns; matching entries are
	// skipped entirely (not even recorded as an empty directory). Ignored
	// if Matcher is set.
	Exclude []string
	// Matcher, when set, takes precedence over Exclude. Used by callers
	// (internal/ptconfig) that also load .ptarignore/.gitignore/a custom
	// ignore file via ignore.NewMatcher.
	Matcher ignore.Matcher
	// FollowSymlinks controls whether symlinks are traversed. Default
	// (false) records them as File leaves without following.
	FollowSymlinks bool
}

// Warning describes a non-fatal problem encountered during the walk.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// Walk recursively traverses root in pre-order and returns an empty Tree
// (every optional metadata slot unset) plus any non-fatal warnings.
func Walk(root string, opts Options) (*tree.Tree, []Warning, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("walker: stat root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("walker: root %q is not a directory", root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("walker: resolve absolute path for %q: %w", root, err)
	}

	matcher := opts.Matcher
	if matcher == nil && len(opts.Exclude) > 0 {
		matcher = ignore.NewPatternMatcher(opts.Exclude)
	}

	w := &walkState{
		absRoot: absRoot,
		opts:    opts,
		matcher: matcher,
		visited: make(map[string]bool),
	}

	rootEntry := tree.NewDir(filepath.Base(absRoot))
	if err := w.fillDir(absRoot, "", rootEntry); err != nil {
		return nil, w.warnings, err
	}

	return &tree.Tree{RootAbsPath: absRoot, Root: rootEntry}, w.warnings, nil
}

type walkState struct {
	absRoot  string
	opts     Options
	matcher  ignore.Matcher
	visited  map[string]bool
	warnings []Warning
}

func (w *walkState) warn(path string, err error) {
	logger.Warn("walker: "+path, "error", err)
	w.warnings = append(w.warnings, Warning{Path: path, Err: err})
}

// fillDir populates dirEntry's Children from the directory at absPath.
// relPath is absPath's path relative to the walk root (with "/" separators),
// used only for exclusion matching and warnings.
func (w *walkState) fillDir(absPath, relPath string, dirEntry *tree.Entry) error {
	entries, err := os.ReadDir(absPath)
	if err != nil {
		// Unreadable directory: non-fatal warning, empty children (spec
		// §4.2).
		w.warn(relPath, err)
		return nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, de := range entries {
		name := de.Name()
		childRel := name
		if relPath != "" {
			childRel = relPath + "/" + name
		}
		childAbs := filepath.Join(absPath, name)

		if w.matcher != nil && w.matcher.Match(childRel, de.IsDir()) {
			continue
		}

		child, err := w.buildEntry(childAbs, childRel, name, de)
		if err != nil {
			w.warn(childRel, err)
			continue
		}
		if child != nil {
			dirEntry.Children = append(dirEntry.Children, child)
		}
	}
	dirEntry.SortChildren()
	return nil
}

func (w *walkState) buildEntry(absPath, relPath, name string, de os.DirEntry) (*tree.Entry, error) {
	fileType := de.Type()

	if fileType&(os.ModeNamedPipe|os.ModeSocket|os.ModeDevice) != 0 {
		// Special files cannot be meaningfully archived; skip silently.
		return nil, nil
	}

	if fileType&os.ModeSymlink != 0 {
		return w.buildSymlink(absPath, relPath, name)
	}

	if de.IsDir() {
		dirEntry := tree.NewDir(name)
		if err := w.fillDir(absPath, relPath, dirEntry); err != nil {
			return nil, err
		}
		return dirEntry, nil
	}

	info, err := de.Info()
	if err != nil {
		return nil, err
	}
	entry := tree.NewFile(name)
	// Size/mtime/mode are left unset here (spec's "empty .etr slot"); they
	// are populated by the hash engine, not the walker, so that HashEngine
	// re-stats at the moment it reads the file rather than trusting a
	// possibly-stale walk-time stat.
	_ = info
	return entry, nil
}

func (w *walkState) buildSymlink(absPath, relPath, name string) (*tree.Entry, error) {
	target, err := os.Readlink(absPath)
	if err != nil {
		return nil, err
	}

	entry := tree.NewFile(name)
	entry.File.IsSymlink = true
	entry.File.SymlinkTarget = target

	if !w.opts.FollowSymlinks {
		return entry, nil
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		w.warn(relPath, fmt.Errorf("resolve symlink: %w", err))
		return entry, nil
	}
	if !withinRoot(w.absRoot, resolved) {
		// Refuses to follow symlinks that resolve outside the tree's
		// absolute root.
		w.warn(relPath, fmt.Errorf("symlink target %q escapes root %q, not following", resolved, w.absRoot))
		return entry, nil
	}

	info, err := os.Stat(resolved)
	if err != nil {
		w.warn(relPath, err)
		return entry, nil
	}
	if info.IsDir() {
		if w.visited[resolved] {
			w.warn(relPath, fmt.Errorf("symlink cycle detected at %q", resolved))
			return entry, nil
		}
		w.visited[resolved] = true
		defer delete(w.visited, resolved)

		dirEntry := tree.NewDir(name)
		if err := w.fillDir(resolved, relPath, dirEntry); err != nil {
			return nil, err
		}
		return dirEntry, nil
	}
	// Followed symlink resolves to a regular file: treat exactly like a
	// file entry instead of a symlink leaf.
	entry.File.IsSymlink = false
	entry.File.SymlinkTarget = ""
	return entry, nil
}

func withinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
