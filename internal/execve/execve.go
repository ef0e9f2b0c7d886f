// Package execve hands the current process over to the configured
// process-manager invocation. On unix the process image is replaced and no
// launcher process remains; on windows, where execve has no equivalent, the
// command runs as a child with inherited stdio and the launcher exits with
// its code.
package execve

import (
	"fmt"
	"os/exec"
)

// lookPath resolves argv[0] to an absolute path. The kernel exec call does
// not consult PATH, so resolution happens here and failures surface before
// the process image is touched.
func lookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	return path, nil
}
