package preflight

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestResolveBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "gunicorn")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	path, err := ResolveBinary("gunicorn")
	if err != nil {
		t.Fatalf("ResolveBinary failed: %v", err)
	}
	if path != bin {
		t.Errorf("path = %q, want %q", path, bin)
	}
}

func TestResolveBinary_Missing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := ResolveBinary("definitely-not-installed")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "definitely-not-installed") {
		t.Errorf("error should name the binary: %v", err)
	}
}

func TestCheckAgent(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	if err := CheckAgent("127.0.0.1", port, time.Second); err != nil {
		t.Errorf("CheckAgent failed against live listener: %v", err)
	}
}

func TestCheckAgent_Unreachable(t *testing.T) {
	// Grab a port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	err = CheckAgent("127.0.0.1", port, time.Second)
	if err == nil {
		t.Fatal("expected error for closed port")
	}
	if !strings.Contains(err.Error(), "unreachable") {
		t.Errorf("error = %v", err)
	}
}
