//go:build !windows

package supervisor

import (
	"os"
	"syscall"
)

type diskSpaceInfo struct {
	used, total, avail uint64
}

// diskUsage computes used/total/available bytes for the filesystem holding
// path, guarding against divide-by-zero the way the original
// DiskSpaceInfo.disk_usage_percentage property does.
func diskUsage(path string) (diskSpaceInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return diskSpaceInfo{}, nil
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return diskSpaceInfo{}, err
	}

	total := stat.Blocks * uint64(stat.Bsize)
	avail := stat.Bavail * uint64(stat.Bsize)
	used := total - (stat.Bfree * uint64(stat.Bsize))

	return diskSpaceInfo{used: used, total: total, avail: avail}, nil
}
