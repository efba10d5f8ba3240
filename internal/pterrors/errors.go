// Package pterrors defines the sentinel error taxonomy used throughout
// parallel-tar, so callers can classify failures with errors.Is regardless
// of which component produced them.
package pterrors

import "errors"

var (
	// ErrInputMissing means the root path does not exist or is not a
	// directory. Fatal at startup.
	ErrInputMissing = errors.New("input path missing or not a directory")

	// ErrUnreadableEntry means a permission or I/O error occurred reading an
	// individual file or directory. Warned and skipped, never fatal.
	ErrUnreadableEntry = errors.New("unreadable entry")

	// ErrEntryVanished means an entry present in the .etr is missing at
	// archive or hash time. Warned; left unacknowledged at finalize.
	ErrEntryVanished = errors.New("entry vanished since index was built")

	// ErrSizeMismatch means a file's live size differs from the indexed
	// size. Warned; archived with the live size.
	ErrSizeMismatch = errors.New("file size differs from index")

	// ErrIndexCorrupt wraps codec-level failures when a .etr/.idx file
	// fails its magic/version/truncation check. Fatal.
	ErrIndexCorrupt = errors.New("index file is corrupt")

	// ErrBadMagic means the file header magic bytes did not match
	// "PTARIDX\0".
	ErrBadMagic = errors.New("bad index magic")

	// ErrUnsupportedVersion means the header's version field is not one
	// this codec understands.
	ErrUnsupportedVersion = errors.New("unsupported index version")

	// ErrTruncated means the stream ended before a complete record could be
	// read.
	ErrTruncated = errors.New("truncated index data")

	// ErrInvalidUTF8Path means a path component was not valid UTF-8 while
	// strict UTF-8 decoding was requested.
	ErrInvalidUTF8Path = errors.New("invalid UTF-8 path component")

	// ErrOutputExists means the target archive directory already contains
	// files. Fatal.
	ErrOutputExists = errors.New("output directory already contains files")

	// ErrWriteFailed means an I/O error occurred writing to a tar or
	// compressor stream. Fatal for that shard only; other shards continue.
	ErrWriteFailed = errors.New("write failed")

	// ErrCancelled means the user requested cancellation. Partial success
	// is reported.
	ErrCancelled = errors.New("cancelled")

	// ErrNotImplemented marks CLI surfaces that are intentionally out of
	// scope for this core (e.g. extraction mode).
	ErrNotImplemented = errors.New("not implemented")
)
