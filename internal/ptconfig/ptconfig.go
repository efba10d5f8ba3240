// Package ptconfig centralizes the flag-derived settings shared by
// cmd/ptaridx and cmd/ptarcli, so neither command duplicates
// exclusion/worker-count resolution.
package ptconfig

import (
	"fmt"
	"runtime"

	"github.com/JBlaschke/parallel-tar/internal/ignore"
	"github.com/JBlaschke/parallel-tar/internal/walker"
)

// ResolveWorkers turns a user-supplied -n value into a concrete worker
// count: n>0 is used as-is, n<=0 falls back to runtime.NumCPU() (available
// parallelism).
func ResolveWorkers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// ExclusionOptions bundles the flag values cmd/ptaridx and cmd/ptarcli both
// expose for skipping entries during a walk.
type ExclusionOptions struct {
	// Exclude is the repeatable --exclude pattern list (-x in ptaridx, -e in
	// ptarcli, where -x means extract).
	Exclude []string
	// IgnoreFile is an optional --ignore-file/-i path whose patterns are
	// combined with Exclude and the auto-loaded .ptarignore/.gitignore.
	IgnoreFile string
	// RootPath is the directory being walked, used to auto-load
	// .ptarignore/.gitignore from it.
	RootPath string
}

// WalkerOptions builds walker.Options from an ExclusionOptions, loading
// .ptarignore/.gitignore plus any explicit exclusions/ignore file.
func WalkerOptions(eo ExclusionOptions, followSymlinks bool) (walker.Options, error) {
	matcher, err := ignore.NewMatcher(eo.Exclude, eo.RootPath, true, eo.IgnoreFile)
	if err != nil {
		return walker.Options{}, fmt.Errorf("ptconfig: build ignore matcher: %w", err)
	}
	return walker.Options{Matcher: matcher, FollowSymlinks: followSymlinks}, nil
}
