package hashengine

import (
	"bytes"

	"github.com/JBlaschke/parallel-tar/internal/hashalgo"
	"github.com/JBlaschke/parallel-tar/internal/tree"
)

// computeDirHashes visits t in post-order, computing each directory's
// Merkle hash as H(concat(name, typeTag, childDigest) for child in order)
// and summing aggregate file/dir counts and byte totals. Children are
// already sorted by name (a tree.Entry invariant), so the digest is
// well-defined without an extra sort here.
func computeDirHashes(root *tree.Entry, algo hashalgo.Algorithm) {
	var rec func(e *tree.Entry)
	rec = func(e *tree.Entry) {
		if e.Kind != tree.KindDirectory {
			return
		}

		var buf bytes.Buffer
		var aggFiles, aggDirs, aggBytes int64

		for _, c := range e.Children {
			rec(c)

			buf.WriteString(c.Name)
			switch c.Kind {
			case tree.KindFile:
				buf.WriteByte(0)
				buf.Write(c.File.ContentHash[:])
				aggFiles++
				aggBytes += c.File.Size
			case tree.KindDirectory:
				buf.WriteByte(1)
				buf.Write(c.Dir.DirHash[:])
				aggFiles += c.Dir.AggregateFiles
				aggDirs += c.Dir.AggregateDirs + 1
				aggBytes += c.Dir.AggregateBytes
			}
		}

		e.Dir.DirHash = hashalgo.Sum256(algo, buf.Bytes())
		e.Dir.HasHash = true
		e.Dir.AggregateFiles = aggFiles
		e.Dir.AggregateDirs = aggDirs
		e.Dir.AggregateBytes = aggBytes
	}
	rec(root)
}
