// Package hashalgo provides the pluggable content/directory hash used by the
// index format. The index header carries a 1-byte algorithm tag so future
// variants can coexist; today only BLAKE3-256 is implemented, chosen for
// its throughput.
package hashalgo

import (
	"hash"

	"github.com/zeebo/blake3"
)

// Algorithm is the pluggable hash used for file content and directory
// Merkle digests.
type Algorithm interface {
	// New returns a fresh hash.Hash instance. Implementations must be safe
	// to call concurrently from multiple goroutines (each call returns an
	// independent hasher).
	New() hash.Hash
	// Tag is the 1-byte identifier stored in the index header.
	Tag() byte
}

// TagBlake3 is the index-header algorithm tag for BLAKE3-256.
const TagBlake3 byte = 1

type blake3Algorithm struct{}

func (blake3Algorithm) New() hash.Hash { return blake3.New() }
func (blake3Algorithm) Tag() byte      { return TagBlake3 }

// Blake3 is the default and only supported algorithm.
var Blake3 Algorithm = blake3Algorithm{}

// ByTag resolves an index-header tag to an Algorithm. Returns false if the
// tag is unrecognized.
func ByTag(tag byte) (Algorithm, bool) {
	switch tag {
	case TagBlake3:
		return Blake3, true
	default:
		return nil, false
	}
}

// Sum256 hashes b with the given algorithm and returns a fixed 32-byte
// digest, truncating/zero-padding if the algorithm's native size differs
// (BLAKE3-256 is exactly 32 bytes, so this is exact today).
func Sum256(algo Algorithm, b []byte) [32]byte {
	h := algo.New()
	h.Write(b) //nolint:errcheck // hash.Hash.Write never returns an error
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
