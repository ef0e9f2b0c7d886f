//go:build windows

package execve

import (
	"errors"
	"os"
	"os/exec"
)

// Exec runs argv as a child with inherited stdio and exits with its code.
// Windows has no process-image replacement, so a thin wrapper process stays
// behind to relay the exit status.
func Exec(argv, env []string) error {
	path, err := lookPath(argv[0])
	if err != nil {
		return err
	}

	cmd := exec.Command(path, argv[1:]...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		return err
	}
	os.Exit(0)
	return nil
}
