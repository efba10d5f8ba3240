//go:build !unix

package hashengine

import (
	"os"

	"github.com/JBlaschke/parallel-tar/internal/tree"
)

// setOwnership is a no-op on platforms without POSIX uid/gid semantics.
func setOwnership(_ os.FileInfo, _ *tree.Entry) {}
