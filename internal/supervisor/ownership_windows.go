//go:build windows

package supervisor

// chownLike is a no-op on Windows, which has no POSIX uid/gid ownership
// model; containers are the deployment target there and bind-mount
// ownership is irrelevant.
func chownLike(target, reference string) error {
	return nil
}
