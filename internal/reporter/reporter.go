// Package reporter renders the two end-of-run summaries: the "largest
// entries" table over a completed .idx tree, and the acknowledged/missing
// reconciliation over a dispatch.Result.
package reporter

import (
	"encoding/hex"
	"sort"

	"github.com/JBlaschke/parallel-tar/internal/dispatch"
	"github.com/JBlaschke/parallel-tar/internal/tree"
)

// LargestEntry describes one entry in the "largest entries" summary.
type LargestEntry struct {
	Path      string
	IsDir     bool
	Bytes     int64
	Files     int64
	Dirs      int64
	HashHex16 string
}

// LargestEntries returns the n entries (file or directory) with the largest
// aggregate byte size, largest first, ties broken by path for determinism.
// n defaults to 5 when non-positive.
func LargestEntries(t *tree.Tree, n int) []LargestEntry {
	if n <= 0 {
		n = 5
	}
	var all []LargestEntry
	t.Walk(func(path string, e *tree.Entry) {
		if path == "" {
			return
		}
		switch e.Kind {
		case tree.KindFile:
			all = append(all, LargestEntry{
				Path:      path,
				Bytes:     e.File.Size,
				HashHex16: hashHex16(e.File.ContentHash[:], e.File.HasHash),
			})
		case tree.KindDirectory:
			all = append(all, LargestEntry{
				Path:      path,
				IsDir:     true,
				Bytes:     e.Dir.AggregateBytes,
				Files:     e.Dir.AggregateFiles,
				Dirs:      e.Dir.AggregateDirs,
				HashHex16: hashHex16(e.Dir.DirHash[:], e.Dir.HasHash),
			})
		}
	})

	sort.Slice(all, func(i, j int) bool {
		if all[i].Bytes != all[j].Bytes {
			return all[i].Bytes > all[j].Bytes
		}
		return all[i].Path < all[j].Path
	})

	if len(all) > n {
		all = all[:n]
	}
	return all
}

func hashHex16(sum []byte, has bool) string {
	if !has {
		return ""
	}
	return hex.EncodeToString(sum)[:16]
}

// Summarize reconciles a dispatch.Result's acknowledged and missing path
// lists. Missing also folds in any items the dispatcher never submitted.
func Summarize(result dispatch.Result) (acknowledged, missing []string) {
	missing = make([]string, 0, len(result.Missing)+len(result.NotSubmitted))
	missing = append(missing, result.Missing...)
	missing = append(missing, result.NotSubmitted...)
	return result.Acknowledged, missing
}
