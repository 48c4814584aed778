//go:build !linux

package sample

import "os"

// fileTimes falls back to the modification time where the platform stat
// does not expose ctime/atime portably.
func fileTimes(info os.FileInfo) (created, accessed int64) {
	mod := info.ModTime().Unix()
	return mod, mod
}
