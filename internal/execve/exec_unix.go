//go:build unix

package execve

import (
	"golang.org/x/sys/unix"
)

// Exec replaces the current process image with argv. It returns only on
// error; on success the launcher ceases to exist.
func Exec(argv, env []string) error {
	path, err := lookPath(argv[0])
	if err != nil {
		return err
	}
	return unix.Exec(path, argv, env)
}
