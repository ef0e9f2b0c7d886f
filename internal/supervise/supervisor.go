package supervise

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// DefaultGracePeriod is how long a child gets between SIGTERM and SIGKILL
// when the supervisor itself is being shut down.
const DefaultGracePeriod = 30 * time.Second

// Options configures one supervised run.
type Options struct {
	// Signals are delivered to the child's process group as they arrive.
	Signals <-chan os.Signal

	// Reload ticks send SIGHUP to the manager, which reloads its workers
	// without dropping the listening socket.
	Reload <-chan struct{}

	// Grace is the SIGTERM-to-SIGKILL window on shutdown.
	// Zero means DefaultGracePeriod.
	Grace time.Duration

	// Done, when non-nil, requests shutdown of the child.
	Done <-chan struct{}
}

// Supervisor runs one child under signal relay.
type Supervisor struct {
	runner Runner
}

// New creates a Supervisor using the given Runner.
func New(r Runner) *Supervisor {
	return &Supervisor{runner: r}
}

type waitResult struct {
	code int
	err  error
}

// Run starts argv and blocks until the child exits, relaying signals and
// reload ticks in the meantime. It returns the child's exit code. Systemd
// readiness is notified after a successful start; outside systemd the
// notification is a no-op.
func (s *Supervisor) Run(argv, env []string, opts Options) (int, error) {
	proc, err := s.runner.Start(argv, env)
	if err != nil {
		return 1, fmt.Errorf("start %s: %w", argv[0], err)
	}
	slog.Debug("child started", "pid", proc.Pid(), "command", argv[0])

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	grace := opts.Grace
	if grace == 0 {
		grace = DefaultGracePeriod
	}

	exited := make(chan waitResult, 1)
	go func() {
		code, err := proc.Wait()
		exited <- waitResult{code, err}
	}()

	for {
		select {
		case sig := <-opts.Signals:
			slog.Debug("forwarding signal", "signal", sig)
			if err := proc.Signal(sig); err != nil {
				slog.Debug("signal delivery failed", "signal", sig, "error", err)
			}

		case <-opts.Reload:
			slog.Debug("reload requested, sending SIGHUP", "pid", proc.Pid())
			if err := proc.Signal(syscall.SIGHUP); err != nil {
				slog.Debug("reload signal failed", "error", err)
			}

		case <-opts.Done:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			_ = proc.Signal(syscall.SIGTERM)
			select {
			case res := <-exited:
				return res.code, res.err
			case <-time.After(grace):
				slog.Debug("grace period expired, killing child", "pid", proc.Pid())
				_ = proc.Kill()
				res := <-exited
				return res.code, res.err
			}

		case res := <-exited:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			slog.Debug("child exited", "code", res.code)
			return res.code, res.err
		}
	}
}
