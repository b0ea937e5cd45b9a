//go:build unix

package hunters

import (
	"io/fs"
	"syscall"
	"time"
)

// statTimes extracts access and change time from a FileInfo. The change
// time stands in for creation time; birth time is not available on most
// Unix filesystems.
func statTimes(info fs.FileInfo) (atime, ctime *time.Time) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}
	a := time.Unix(stat.Atim.Sec, stat.Atim.Nsec)
	c := time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
	return &a, &c
}
