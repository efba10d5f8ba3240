//go:build unix

package hashengine

import (
	"os"
	"syscall"

	"github.com/JBlaschke/parallel-tar/internal/tree"
)

// setOwnership fills UID/GID from the platform-specific stat_t embedded in
// info.Sys(), when available.
func setOwnership(info os.FileInfo, e *tree.Entry) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	e.File.UID = st.Uid
	e.File.GID = st.Gid
}
