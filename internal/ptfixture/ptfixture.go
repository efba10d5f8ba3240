// Package ptfixture builds small, deterministic directory trees on disk for
// tests: a seeded, in-process tree builder that exercises the
// walker/hash/dispatch/tarshard pipeline end-to-end from every package's
// _test.go files, without a standalone CLI wrapper.
package ptfixture

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// Spec describes the shape of a fixture tree to build.
type Spec struct {
	// Seed makes the generated tree reproducible across runs.
	Seed int64
	// Depth is the maximum directory nesting depth.
	Depth int
	// FilesPerDir is the number of files created in each directory.
	FilesPerDir int
	// SubdirsPerDir is the number of subdirectories created in each directory
	// below Depth.
	SubdirsPerDir int
	// MaxFileSize bounds the random byte-content size of each file.
	MaxFileSize int
	// EmptyDirs adds this many additional childless directories at the root,
	// to exercise Tree.EmptyDirs()/archival of empty directories.
	EmptyDirs int
}

// Build creates a fixture tree under dir (which must already exist and be
// empty) per spec, returning the list of relative file paths created in
// deterministic (sorted-by-creation) order.
func Build(dir string, spec Spec) ([]string, error) {
	r := rand.New(rand.NewSource(spec.Seed))
	var files []string

	var rec func(path string, depth int) error
	rec = func(path string, depth int) error {
		for i := 0; i < spec.FilesPerDir; i++ {
			name := fmt.Sprintf("file_%02d.bin", i)
			full := filepath.Join(path, name)
			size := 0
			if spec.MaxFileSize > 0 {
				size = r.Intn(spec.MaxFileSize + 1)
			}
			buf := make([]byte, size)
			r.Read(buf) //nolint:errcheck // math/rand.Rand.Read never errors
			if err := os.WriteFile(full, buf, 0o644); err != nil {
				return fmt.Errorf("ptfixture: write %q: %w", full, err)
			}
			rel, err := filepath.Rel(dir, full)
			if err != nil {
				return fmt.Errorf("ptfixture: rel %q: %w", full, err)
			}
			files = append(files, filepath.ToSlash(rel))
		}

		if depth >= spec.Depth {
			return nil
		}
		for i := 0; i < spec.SubdirsPerDir; i++ {
			sub := filepath.Join(path, fmt.Sprintf("dir_%02d", i))
			if err := os.MkdirAll(sub, 0o755); err != nil {
				return fmt.Errorf("ptfixture: mkdir %q: %w", sub, err)
			}
			if err := rec(sub, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := rec(dir, 0); err != nil {
		return nil, err
	}

	for i := 0; i < spec.EmptyDirs; i++ {
		empty := filepath.Join(dir, fmt.Sprintf("empty_%02d", i))
		if err := os.MkdirAll(empty, 0o755); err != nil {
			return nil, fmt.Errorf("ptfixture: mkdir %q: %w", empty, err)
		}
	}

	return files, nil
}
