//go:build !darwin && !freebsd && !netbsd && !windows

package platform

import (
	"os"
	"time"
)

// CreationTime returns the modification time; Linux stat exposes no birth time
func CreationTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
