package supervise

import (
	"context"
	"fmt"
	"os"
	"sync"
	"syscall"
)

// FakeCommand simulates a child process. The context is cancelled when the
// process receives a terminating signal; the return value is the exit code.
type FakeCommand func(ctx context.Context, argv []string) int

// FakeRunner is a test Runner that runs registered fake commands.
type FakeRunner struct {
	mu       sync.Mutex
	commands map[string]FakeCommand
	last     *FakeProcess
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{commands: make(map[string]FakeCommand)}
}

// Register installs a fake command under the given argv[0].
func (r *FakeRunner) Register(name string, cmd FakeCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = cmd
}

// LastProcess returns the most recently started process, for signal
// assertions.
func (r *FakeRunner) LastProcess() *FakeProcess {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Start implements Runner.
func (r *FakeRunner) Start(argv, env []string) (Process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	r.mu.Lock()
	handler, ok := r.commands[argv[0]]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("executable %q not found", argv[0])
	}

	ctx, cancel := context.WithCancel(context.Background())
	proc := &FakeProcess{
		cancel: cancel,
		done:   make(chan struct{}),
		killed: make(chan struct{}),
	}

	r.mu.Lock()
	r.last = proc
	r.mu.Unlock()

	go func() {
		code := handler(ctx, argv)
		proc.mu.Lock()
		proc.exitCode = code
		proc.mu.Unlock()
		close(proc.done)
	}()

	return proc, nil
}

// FakeProcess implements Process and records every signal it receives.
type FakeProcess struct {
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	killed   chan struct{}
	killOnce sync.Once
	exitCode int
	signals  []os.Signal
}

func (p *FakeProcess) Wait() (int, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, nil
}

func (p *FakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	p.mu.Unlock()
	if sig == syscall.SIGTERM || sig == syscall.SIGINT || sig == syscall.SIGKILL {
		p.cancel()
	}
	return nil
}

func (p *FakeProcess) Kill() error {
	p.killOnce.Do(func() { close(p.killed) })
	p.cancel()
	return nil
}

func (p *FakeProcess) Pid() int { return 4242 }

// Killed is closed once Kill has been called.
func (p *FakeProcess) Killed() <-chan struct{} { return p.killed }

// Signals returns a copy of the signals delivered so far.
func (p *FakeProcess) Signals() []os.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]os.Signal, len(p.signals))
	copy(out, p.signals)
	return out
}
