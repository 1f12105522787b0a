//go:build windows

package platform

import (
	"os"
	"syscall"
	"time"
)

// CreationTime returns the NTFS creation time, falling back to the modification time
func CreationTime(info os.FileInfo) time.Time {
	if d, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		if ns := d.CreationTime.Nanoseconds(); ns > 0 {
			return time.Unix(0, ns)
		}
	}
	return info.ModTime()
}
