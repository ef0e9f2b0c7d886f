// Package supervise runs the process manager as a supervised child instead
// of replacing the launcher's process image. It exists for the cases where
// replacement is unavailable or unwanted: windows, and reload-mode
// development loops where the launcher watches the source tree.
//
// It is deliberately not a process supervisor in the manager's sense: it
// relays signals and the exit code for exactly one child and leaves worker
// spawning, monitoring, and recycling to the manager itself.
package supervise

import (
	"os"
	"os/exec"
)

// Process is a started child process.
type Process interface {
	// Wait blocks until the process exits and returns its exit code.
	// A signal death maps to 128+signal, matching shell convention.
	Wait() (exitCode int, err error)
	// Signal delivers sig to the process group.
	Signal(sig os.Signal) error
	// Kill forcibly terminates the process group.
	Kill() error
	// Pid returns the child's process ID.
	Pid() int
}

// Runner starts child processes.
type Runner interface {
	Start(argv, env []string) (Process, error)
}

// ExecRunner is the default Runner backed by plain OS processes. Children
// get their own process group so signals reach the manager's workers too.
type ExecRunner struct{}

type execProcess struct {
	cmd *exec.Cmd
}

// Start implements Runner using os/exec with inherited stdio.
func (ExecRunner) Start(argv, env []string) (Process, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitStatus(exitErr.ProcessState), nil
		}
		return 1, err
	}
	return 0, nil
}

func (p *execProcess) Signal(sig os.Signal) error {
	return signalGroup(p.cmd, sig)
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}
