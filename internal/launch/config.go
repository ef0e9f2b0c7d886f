// Package launch defines the launch configuration contract and builds the
// process-manager invocation from it.
//
// Configuration is resolved in three layers: built-in defaults, an optional
// TOML file, and environment variables. Environment always wins, since the
// deployment image sets the contract through the environment.
package launch

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Environment variable names consumed by the launcher.
const (
	EnvHost              = "EMMET_HOST"
	EnvPort              = "PORT"
	EnvWorkers           = "NUM_WORKERS"
	EnvMaxRequests       = "MAX_REQUESTS"
	EnvMaxRequestsJitter = "MAX_REQUESTS_JITTER"
	EnvReload            = "RELOAD"
	EnvApp               = "EMMET_APP"
	EnvAgentHost         = "DD_AGENT_HOST"
	EnvAgentPort         = "DD_TRACE_AGENT_PORT"
	EnvManagerPath       = "GUNICORN_PATH"
	EnvWrapperPath       = "DDTRACE_RUN_PATH"
	EnvConfigFile        = "EMMET_LAUNCH_CONFIG"
)

// Config describes one launch of the process manager.
type Config struct {
	// Bind address for the manager's listening socket.
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// Worker process count, handed to the manager verbatim.
	Workers int `toml:"workers"`

	// Request-based worker recycling. Zero means unlimited; the jitter
	// staggers recycling so workers don't restart in lockstep.
	MaxRequests       int `toml:"max_requests"`
	MaxRequestsJitter int `toml:"max_requests_jitter"`

	// Reload asks for code-reload behavior on source changes.
	Reload bool `toml:"reload"`

	// App is the module-level application object reference, expected to
	// already exist in the deployment image.
	App string `toml:"app"`

	// Tracing agent endpoint. The tracing wrapper is prefixed to the
	// command only when AgentHost is set.
	AgentHost string `toml:"agent_host"`
	AgentPort int    `toml:"agent_port"`

	// External binaries. Overridable so images can pin exact paths.
	ManagerPath string `toml:"manager_path"`
	WrapperPath string `toml:"wrapper_path"`

	// WorkerClass bridges the async application interface to the
	// manager's worker protocol.
	WorkerClass string `toml:"worker_class"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        8000,
		Workers:     4,
		App:         "emmet.api.app:app",
		AgentPort:   8126,
		ManagerPath: "gunicorn",
		WrapperPath: "ddtrace-run",
		WorkerClass: "uvicorn.workers.UvicornWorker",
	}
}

// Load resolves the configuration from defaults, the optional TOML file at
// path (or $EMMET_LAUNCH_CONFIG when path is empty), and the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvApp); v != "" {
		c.App = v
	}
	if v := os.Getenv(EnvAgentHost); v != "" {
		c.AgentHost = v
	}
	if v := os.Getenv(EnvManagerPath); v != "" {
		c.ManagerPath = v
	}
	if v := os.Getenv(EnvWrapperPath); v != "" {
		c.WrapperPath = v
	}

	for _, e := range []struct {
		name string
		dst  *int
	}{
		{EnvPort, &c.Port},
		{EnvWorkers, &c.Workers},
		{EnvMaxRequests, &c.MaxRequests},
		{EnvMaxRequestsJitter, &c.MaxRequestsJitter},
		{EnvAgentPort, &c.AgentPort},
	} {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", e.name, v)
		}
		*e.dst = n
	}

	if v := os.Getenv(EnvReload); v != "" {
		c.Reload = truthy(v)
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%s: port %d out of range", EnvPort, c.Port))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%s: worker count must be positive, got %d", EnvWorkers, c.Workers))
	}
	if c.MaxRequests < 0 {
		errs = append(errs, fmt.Errorf("%s: must be non-negative, got %d", EnvMaxRequests, c.MaxRequests))
	}
	if c.MaxRequestsJitter < 0 {
		errs = append(errs, fmt.Errorf("%s: must be non-negative, got %d", EnvMaxRequestsJitter, c.MaxRequestsJitter))
	}
	if c.App == "" {
		errs = append(errs, fmt.Errorf("%s: application reference must not be empty", EnvApp))
	}
	return errors.Join(errs...)
}

// truthy matches the usual deployment-environment booleans.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
