package main

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/kim-jiyoon/emmet/internal/launch"
	"github.com/kim-jiyoon/emmet/internal/preflight"
)

func TestSupervisedCommand_SuppressesManagerReload(t *testing.T) {
	cfg := launch.Defaults()
	cfg.Reload = true

	if !slices.Contains(cfg.Command(), "--reload") {
		t.Fatal("reload mode should emit --reload in the plain command")
	}
	if slices.Contains(supervisedCommand(cfg), "--reload") {
		t.Error("supervised mode must not run the manager's own file watcher")
	}
}

// fakeBinDir creates a PATH directory holding executable stand-ins for the
// external binaries.
func fakeBinDir(t *testing.T, names ...string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// closedPort returns a localhost port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestRunChecks_AgentWarningIsNotFatal(t *testing.T) {
	t.Setenv("PATH", fakeBinDir(t, "gunicorn", "ddtrace-run"))
	t.Setenv(preflight.EnvAppMongoHost, "db.example.net")
	t.Setenv(preflight.EnvAppDBNameSuffix, "test")

	cfg := launch.Defaults()
	cfg.AgentHost = "127.0.0.1"
	cfg.AgentPort = closedPort(t)

	var out strings.Builder
	if !runChecks(cfg, &out) {
		t.Errorf("unreachable tracing agent must not fail the check:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "warn:") {
		t.Errorf("unreachable agent should be reported as a warning:\n%s", out.String())
	}
}

func TestRunChecks_MissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv(preflight.EnvAppMongoHost, "db.example.net")
	t.Setenv(preflight.EnvAppDBNameSuffix, "test")

	var out strings.Builder
	if runChecks(launch.Defaults(), &out) {
		t.Errorf("missing manager binary should fail the check:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "gunicorn") {
		t.Errorf("failure should name the binary:\n%s", out.String())
	}
}

func TestRunChecks_MissingAppEnv(t *testing.T) {
	t.Setenv("PATH", fakeBinDir(t, "gunicorn"))
	for _, key := range []string{preflight.EnvAppMongoHost, preflight.EnvAppDBNameSuffix} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	var out strings.Builder
	if runChecks(launch.Defaults(), &out) {
		t.Errorf("incomplete application environment should fail the check:\n%s", out.String())
	}
	for _, key := range []string{preflight.EnvAppMongoHost, preflight.EnvAppDBNameSuffix} {
		if !strings.Contains(out.String(), key) {
			t.Errorf("failure should name %s:\n%s", key, out.String())
		}
	}
}

func TestRunChecks_ReportsNormalizedDatabaseURI(t *testing.T) {
	t.Setenv("PATH", fakeBinDir(t, "gunicorn"))
	t.Setenv(preflight.EnvAppMongoHost, "db.example.net")
	t.Setenv(preflight.EnvAppDBNameSuffix, "test")

	var out strings.Builder
	if !runChecks(launch.Defaults(), &out) {
		t.Fatalf("check failed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "mongodb+srv://db.example.net") {
		t.Errorf("database URI should be reported as the application interprets it:\n%s", out.String())
	}
}
