//go:build darwin || freebsd || netbsd

package platform

import (
	"os"
	"syscall"
	"time"
)

// CreationTime returns the file's birth time, falling back to the modification time
func CreationTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		if sec, nsec := st.Birthtimespec.Unix(); sec > 0 {
			return time.Unix(sec, nsec)
		}
	}
	return info.ModTime()
}
