package launch

import (
	"net"
	"os"
	"strconv"
	"strings"
)

// Command builds the process-manager argv for this configuration. The
// tracing wrapper is prefixed only when a tracing agent host is configured.
// Both log files go to stdio so the surrounding environment owns the sinks.
//
// The result is deterministic for a given Config; it is the launcher's one
// externally checkable output.
func (c Config) Command() []string {
	var argv []string
	if c.AgentHost != "" {
		argv = append(argv, c.WrapperPath)
	}
	argv = append(argv, c.ManagerPath,
		"-b", net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		"-w", strconv.Itoa(c.Workers),
		"-k", c.WorkerClass,
	)
	if c.MaxRequests > 0 {
		argv = append(argv, "--max-requests", strconv.Itoa(c.MaxRequests))
		if c.MaxRequestsJitter > 0 {
			argv = append(argv, "--max-requests-jitter", strconv.Itoa(c.MaxRequestsJitter))
		}
	}
	if c.Reload {
		argv = append(argv, "--reload")
	}
	argv = append(argv,
		"--access-logfile", "-",
		"--error-logfile", "-",
		c.App,
	)
	return argv
}

// Environ returns the child environment: the current process environment
// with the tracing-agent endpoint applied when configured.
func (c Config) Environ() []string {
	return c.EnvironFrom(os.Environ())
}

// EnvironFrom is Environ over an explicit base environment. The base slice
// is left untouched.
func (c Config) EnvironFrom(base []string) []string {
	if c.AgentHost == "" {
		return base
	}
	env := make([]string, len(base))
	copy(env, base)
	env = setEnv(env, EnvAgentHost, c.AgentHost)
	return setEnv(env, EnvAgentPort, strconv.Itoa(c.AgentPort))
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
