//go:build !unix

package tarshard

import (
	"archive/tar"
	"os"
)

// fillOwnership is a no-op on platforms without POSIX uid/gid semantics.
func fillOwnership(_ os.FileInfo, _ *tar.Header) {}
