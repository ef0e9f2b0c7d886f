// Package preflight checks the launch environment before control is handed
// to the external tools. Failures it reports would otherwise surface later
// and less legibly from the process manager or the tracing wrapper.
package preflight

import (
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"time"
)

// DefaultDialTimeout bounds the tracing-agent reachability probe.
const DefaultDialTimeout = 2 * time.Second

// ResolveBinary resolves name on PATH and returns its absolute path. The
// kernel exec call needs the resolved path anyway, so a missing binary is
// a hard failure.
func ResolveBinary(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	return path, nil
}

// CheckAgent dials the tracing agent over TCP. An unreachable agent is not
// fatal to the launch (the tracing wrapper degrades on its own); callers
// log the returned error as a warning.
func CheckAgent(host string, port int, timeout time.Duration) error {
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("tracing agent %s unreachable: %w", addr, err)
	}
	conn.Close()
	return nil
}
