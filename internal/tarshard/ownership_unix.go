//go:build unix

package tarshard

import (
	"archive/tar"
	"os"
	"syscall"
)

// fillOwnership copies POSIX uid/gid from the platform-specific stat_t
// embedded in info.Sys(), when available.
func fillOwnership(info os.FileInfo, hdr *tar.Header) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	hdr.Uid = int(st.Uid)
	hdr.Gid = int(st.Gid)
}
