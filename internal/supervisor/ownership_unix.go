//go:build !windows

package supervisor

import (
	"os"
	"syscall"
)

// chownLike copies reference's uid/gid onto target, matching the original
// system's "create data dir with ownership from the servers root" rule.
func chownLike(target, reference string) error {
	info, err := os.Stat(reference)
	if err != nil {
		return err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}
	return os.Chown(target, int(stat.Uid), int(stat.Gid))
}
