// Package tarshard implements the per-worker tar output shard: each worker
// owns one tar stream, optionally gzip-compressed, with no cross-worker
// coordination required for correctness.
//
// Unlike internal/indexcodec, which hand-rolls a binary layout for an exact
// custom header/record format, the tar stream itself has no bespoke-layout
// requirement, so this package reuses stdlib archive/tar in PAX format
// rather than reimplementing tar framing — the idiom shown by
// google/safearchive's thin archive/tar wrapper and moby-moby's archive
// package. Compression uses github.com/klauspost/compress/gzip, a faster
// drop-in gzip writer, with exactly one encoder per shard: never shared
// across workers.
package tarshard

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/JBlaschke/parallel-tar/internal/dispatch"
	"github.com/JBlaschke/parallel-tar/internal/logger"
	"github.com/JBlaschke/parallel-tar/internal/pterrors"
)

// copyBufferSize is the block size entries are streamed in.
const copyBufferSize = 64 * 1024

// Shard is one worker's independent tar output stream.
type Shard struct {
	id      int
	f       *os.File
	gz      *gzip.Writer // nil unless compression enabled
	tw      *tar.Writer
	emitted map[string]struct{} // directory prefixes already emitted, this shard only
	buf     []byte
}

// NewShard creates the shard's output file at path and wraps it in a tar
// writer, with an interposed gzip writer when gzipEnabled is set.
func NewShard(path string, id int, gzipEnabled bool) (*Shard, error) {
	f, err := os.Create(path) //nolint:gosec // path is derived from the trusted -f output name, not untrusted input
	if err != nil {
		return nil, fmt.Errorf("tarshard: create %q: %w", path, err)
	}

	s := &Shard{id: id, f: f, emitted: make(map[string]struct{}), buf: make([]byte, copyBufferSize)}

	var w io.Writer = f
	if gzipEnabled {
		s.gz = gzip.NewWriter(f)
		w = s.gz
	}
	s.tw = tar.NewWriter(w)
	return s, nil
}

// WriteEntry archives one dispatched item into the shard. It returns
// ok=true only once the entry's header and content are fully written to
// the tar stream.
func (s *Shard) WriteEntry(workDir string, item dispatch.WorkItem) (bool, error) {
	if item.IsDir {
		if err := s.emitDirHeader(item.RelPath); err != nil {
			return false, fmt.Errorf("tarshard: shard %d: %w", s.id, err)
		}
		return true, nil
	}

	if err := s.emitDirPrefixes(filepath.Dir(filepath.ToSlash(item.RelPath))); err != nil {
		return false, fmt.Errorf("tarshard: shard %d: %w", s.id, err)
	}

	full := filepath.Join(workDir, item.RelPath)
	info, err := os.Lstat(full)
	if err != nil {
		logger.Warn("tarshard: entry vanished", "worker", s.id, "path", item.RelPath, "error", err)
		return false, fmt.Errorf("%w: %s", pterrors.ErrEntryVanished, item.RelPath)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return s.writeSymlink(full, item.RelPath, info)
	}
	return s.writeRegular(full, item.RelPath, info, item.ExpectedSize)
}

func (s *Shard) writeSymlink(full, relPath string, info os.FileInfo) (bool, error) {
	target, err := os.Readlink(full)
	if err != nil {
		logger.Warn("tarshard: readlink failed", "worker", s.id, "path", relPath, "error", err)
		return false, fmt.Errorf("%w: %s", pterrors.ErrUnreadableEntry, relPath)
	}
	hdr := &tar.Header{
		Name:     filepath.ToSlash(relPath),
		Typeflag: tar.TypeSymlink,
		Linkname: target,
		Mode:     int64(info.Mode().Perm()),
		ModTime:  info.ModTime(),
		Format:   tar.FormatPAX,
	}
	fillOwnership(info, hdr)
	if err := s.tw.WriteHeader(hdr); err != nil {
		return false, fmt.Errorf("write symlink header %q: %w", relPath, err)
	}
	return true, nil
}

func (s *Shard) writeRegular(full, relPath string, info os.FileInfo, expectedSize int64) (bool, error) {
	f, err := os.Open(full) //nolint:gosec // full is derived from a trusted index/walk, not untrusted input
	if err != nil {
		logger.Warn("tarshard: open failed", "worker", s.id, "path", relPath, "error", err)
		return false, fmt.Errorf("%w: %s", pterrors.ErrEntryVanished, relPath)
	}
	defer f.Close()

	// Re-stat immediately before writing the header so Header.Size always
	// matches the bytes about to be streamed.
	live, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat %q: %w", relPath, err)
	}

	var sizeWarn error
	if expectedSize >= 0 && live.Size() != expectedSize {
		sizeWarn = fmt.Errorf("%w: %s (indexed %d, live %d)", pterrors.ErrSizeMismatch, relPath, expectedSize, live.Size())
		logger.Warn("tarshard: size mismatch", "worker", s.id, "path", relPath, "indexed", expectedSize, "live", live.Size())
	}

	hdr := &tar.Header{
		Name:     filepath.ToSlash(relPath),
		Typeflag: tar.TypeReg,
		Size:     live.Size(),
		Mode:     int64(live.Mode().Perm()),
		ModTime:  live.ModTime(),
		Format:   tar.FormatPAX,
	}
	fillOwnership(live, hdr)
	if err := s.tw.WriteHeader(hdr); err != nil {
		return false, fmt.Errorf("write header %q: %w", relPath, err)
	}

	if _, err := io.CopyBuffer(s.tw, f, s.buf); err != nil {
		return false, fmt.Errorf("%w: stream %q: %v", pterrors.ErrWriteFailed, relPath, err)
	}
	return true, sizeWarn
}

// emitDirPrefixes ensures every directory prefix of a file's path has had a
// tar header emitted, in order, before the file entry itself is written.
func (s *Shard) emitDirPrefixes(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	parts := strings.Split(dir, "/")
	var prefix string
	for _, p := range parts {
		if prefix == "" {
			prefix = p
		} else {
			prefix = prefix + "/" + p
		}
		if err := s.emitDirHeader(prefix); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shard) emitDirHeader(relPath string) error {
	relPath = filepath.ToSlash(relPath)
	if _, done := s.emitted[relPath]; done {
		return nil
	}
	hdr := &tar.Header{
		Name:     relPath + "/",
		Typeflag: tar.TypeDir,
		Mode:     0o755,
		Format:   tar.FormatPAX,
	}
	if err := s.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write dir header %q: %w", relPath, err)
	}
	s.emitted[relPath] = struct{}{}
	return nil
}

// Close finalizes the tar stream: writes the two zero-filled
// end-of-archive blocks, flushes the compressor if present, then closes
// the underlying file.
func (s *Shard) Close() error {
	var firstErr error
	if err := s.tw.Close(); err != nil {
		firstErr = fmt.Errorf("%w: close tar writer: %v", pterrors.ErrWriteFailed, err)
	}
	if s.gz != nil {
		if err := s.gz.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: close gzip writer: %v", pterrors.ErrWriteFailed, err)
		}
	}
	if err := s.f.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("%w: close shard file: %v", pterrors.ErrWriteFailed, err)
	}
	return firstErr
}
