//go:build linux

package sample

import (
	"os"
	"syscall"
)

// fileTimes pulls ctime/atime out of the platform stat. Linux has no true
// birth time in Stat_t, so creation reports the inode change time.
func fileTimes(info os.FileInfo) (created, accessed int64) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ctim.Sec, st.Atim.Sec
	}
	mod := info.ModTime().Unix()
	return mod, mod
}
