package tarshard

import (
	"fmt"
	"path/filepath"

	"github.com/JBlaschke/parallel-tar/internal/dispatch"
)

// ShardPath builds the output path for worker id under the archive
// directory dir named name: "<dir>/<name>.<id>.tar[.gz]".
func ShardPath(dir, name string, id int, gzipEnabled bool) string {
	ext := ".tar"
	if gzipEnabled {
		ext = ".tar.gz"
	}
	return filepath.Join(dir, fmt.Sprintf("%s.%d%s", name, id, ext))
}

// NewWorkerFunc returns a dispatch.NewWorkerFunc that creates one Shard per
// worker id under dir, streaming entries from workDir.
func NewWorkerFunc(dir, name, workDir string, gzipEnabled bool) dispatch.NewWorkerFunc {
	return func(id int) (dispatch.Worker, error) {
		shard, err := NewShard(ShardPath(dir, name, id, gzipEnabled), id, gzipEnabled)
		if err != nil {
			return nil, err
		}
		return &boundShard{shard: shard, workDir: workDir}, nil
	}
}

// boundShard adapts Shard's workDir-parameterized WriteEntry to the
// dispatch.Worker interface, which only carries the item.
type boundShard struct {
	shard   *Shard
	workDir string
}

func (b *boundShard) WriteEntry(item dispatch.WorkItem) (bool, error) {
	return b.shard.WriteEntry(b.workDir, item)
}

func (b *boundShard) Close() error {
	return b.shard.Close()
}
