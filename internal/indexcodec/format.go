// Package indexcodec implements the binary .etr/.idx serialization format
// for internal/tree.Tree: a self-describing header followed by a
// recursive, length-prefixed entry record so a future version's unknown
// trailing fields can be skipped by an older reader.
package indexcodec

// Magic is the fixed 8-byte header magic, including the trailing NUL.
var Magic = [8]byte{'P', 'T', 'A', 'R', 'I', 'D', 'X', 0}

// Version is the only header version this codec understands.
const Version uint16 = 1

// Kind byte values identifying whether a file holds an empty or complete tree.
const (
	KindEtr byte = 0
	KindIdx byte = 1
)

// Entry type tag byte values.
const (
	typeFile byte = 0
	typeDir  byte = 1
)

// Entry flag bits.
const (
	flagRawName byte = 1 << 0 // name bytes are not valid UTF-8, stored raw
	flagHasMeta byte = 1 << 1 // optional metadata slots below are populated
)

const reservedHeaderBytes = 4
