// Package hashengine implements the parallel metadata/hash fill pass: N
// workers drain a bounded queue of file leaves, stat and hash each one, and
// write results back into that leaf's own Entry — safe without per-entry
// locking because enumeration hands each leaf to exactly one worker. A
// single-threaded bottom-up pass then computes directory Merkle hashes and
// aggregate counters once every leaf is done.
//
// The worker pool shape is grounded on the jobs/results channel pattern used
// by parallel directory walkers in the wild (e.g. media-viewer's
// ParallelWalker), adapted here to use golang.org/x/sync/errgroup for the
// join point so a single worker's fatal error can cancel the rest without
// hand-rolled WaitGroup/error-channel plumbing.
package hashengine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/JBlaschke/parallel-tar/internal/hashalgo"
	"github.com/JBlaschke/parallel-tar/internal/logger"
	"github.com/JBlaschke/parallel-tar/internal/tree"
)

// DefaultQueueFactor sizes the bounded leaf queue as DefaultQueueFactor *
// Workers.
const DefaultQueueFactor = 4

// DefaultBufferSize is the per-worker read buffer size for file hashing.
const DefaultBufferSize = 256 * 1024

// Warning describes a non-fatal problem hashing one entry.
type Warning struct {
	Path string
	Err  error
}

// Report summarizes a completed Fill.
type Report struct {
	Warnings []Warning
}

// Engine fills metadata and content hashes into an existing Tree.
type Engine struct {
	// Workers is the number of concurrent hashing goroutines.
	Workers int
	// WorkDir is the directory relative paths are resolved against; it
	// must equal the Tree's RootAbsPath itself, since Tree.Leaves() yields
	// paths relative to the root and never includes the root's own
	// basename as a path component.
	WorkDir string
	// Algo is the content/directory hash algorithm. Defaults to BLAKE3
	// (hashalgo.Blake3) if left zero.
	Algo hashalgo.Algorithm
}

type leafJob struct {
	path  string
	entry *tree.Entry
}

// Fill populates every File's Size/Mtime/Mode/UID/GID/ContentHash and every
// Directory's DirHash/aggregate counters in t, in place.
func (e *Engine) Fill(ctx context.Context, t *tree.Tree) (Report, error) {
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	algo := e.Algo
	if algo == nil {
		algo = hashalgo.Blake3
	}
	t.HashAlgo = algo.Tag()

	leaves := t.Leaves()
	jobs := make(chan leafJob, DefaultQueueFactor*workers)

	var warningsCh = make(chan Warning, len(leaves))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return hashWorker(gctx, e.WorkDir, algo, jobs, warningsCh)
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for _, leaf := range leaves {
			select {
			case jobs <- leafJob{path: leaf.Path, entry: leaf.Entry}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	err := g.Wait()
	close(warningsCh)

	var report Report
	for w := range warningsCh {
		report.Warnings = append(report.Warnings, w)
	}
	if err != nil {
		return report, fmt.Errorf("hashengine: %w", err)
	}

	computeDirHashes(t.Root, algo)
	return report, nil
}

func hashWorker(ctx context.Context, workDir string, algo hashalgo.Algorithm, jobs <-chan leafJob, warnings chan<- Warning) error {
	buf := make([]byte, DefaultBufferSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-jobs:
			if !ok {
				return nil
			}
			if err := hashLeaf(workDir, algo, job, buf); err != nil {
				warnings <- Warning{Path: job.path, Err: err}
			}
		}
	}
}

func hashLeaf(workDir string, algo hashalgo.Algorithm, job leafJob, buf []byte) error {
	e := job.entry

	if e.File.IsSymlink {
		// Symlinks are leaf nodes whose "content" is the target path
		// recorded at walk time; nothing to read, but Lstat still gives us
		// the link's own permission bits for Mode.
		h := algo.New()
		h.Write([]byte(e.File.SymlinkTarget)) //nolint:errcheck
		var sum [tree.HashSize]byte
		copy(sum[:], h.Sum(nil))
		e.File.ContentHash = sum
		e.File.HasHash = true

		full := filepath.Join(workDir, job.path)
		if info, err := os.Lstat(full); err == nil {
			e.File.Mode = tree.EncodeMode(info.Mode())
		} else {
			e.File.Mode = tree.EncodeMode(os.ModeSymlink)
		}
		return nil
	}

	full := filepath.Join(workDir, job.path)
	info, err := os.Lstat(full)
	if err != nil {
		// Entry vanished since the .etr was built.
		e.File.Missing = true
		e.File.Size = 0
		e.File.HasHash = true
		logger.Warn("hashengine: entry vanished", "path", job.path, "error", err)
		return fmt.Errorf("stat %q: %w", job.path, err)
	}

	f, err := os.Open(full) //nolint:gosec // full is derived from a trusted index/walk, not untrusted input
	if err != nil {
		e.File.Missing = true
		e.File.HasHash = true
		logger.Warn("hashengine: open failed", "path", job.path, "error", err)
		return fmt.Errorf("open %q: %w", job.path, err)
	}
	defer f.Close()

	h := algo.New()
	var bytesRead int64
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n]) //nolint:errcheck
			bytesRead += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read %q: %w", job.path, rerr)
		}
	}

	var sum [tree.HashSize]byte
	copy(sum[:], h.Sum(nil))

	e.File.Size = bytesRead
	e.File.Mtime = info.ModTime().UnixNano()
	e.File.Mode = tree.EncodeMode(info.Mode())
	setOwnership(info, e)
	e.File.ContentHash = sum
	e.File.HasHash = true
	return nil
}
