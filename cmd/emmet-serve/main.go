// emmet-serve - launch shim for the emmet API deployment image
//
// Reads the deployment environment contract, assembles the process-manager
// command line (with the tracing wrapper prefixed when an agent is
// configured), and replaces itself with it.
//
// Usage:
//
//	emmet-serve                Launch: exec the process manager in place
//	emmet-serve print          Print the command line without launching
//	emmet-serve run            Launch supervised (signal relay, reload watch)
//	emmet-serve check          Preflight only: binaries and tracing agent
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kim-jiyoon/emmet/internal/execve"
	"github.com/kim-jiyoon/emmet/internal/launch"
	"github.com/kim-jiyoon/emmet/internal/preflight"
	"github.com/kim-jiyoon/emmet/internal/supervise"
	flag "github.com/spf13/pflag"
)

var (
	configFlag    string
	bindHostFlag  string
	portFlag      int
	workersFlag   int
	maxReqFlag    int
	jitterFlag    int
	reloadFlag    bool
	appFlag       string
	watchDirFlags []string
	debugFlag     bool
)

func main() {
	flag.StringVarP(&configFlag, "config", "c", "", "TOML config file (overrides "+launch.EnvConfigFile+")")
	flag.StringVar(&bindHostFlag, "bind-host", "", "Bind host (overrides "+launch.EnvHost+")")
	flag.IntVarP(&portFlag, "port", "p", 0, "Bind port (overrides "+launch.EnvPort+")")
	flag.IntVarP(&workersFlag, "workers", "w", 0, "Worker process count (overrides "+launch.EnvWorkers+")")
	flag.IntVar(&maxReqFlag, "max-requests", 0, "Recycle workers after this many requests (overrides "+launch.EnvMaxRequests+")")
	flag.IntVar(&jitterFlag, "max-requests-jitter", 0, "Recycling jitter (overrides "+launch.EnvMaxRequestsJitter+")")
	flag.BoolVar(&reloadFlag, "reload", false, "Enable reload mode (overrides "+launch.EnvReload+")")
	flag.StringVar(&appFlag, "app", "", "Application object reference (overrides "+launch.EnvApp+")")
	flag.StringArrayVar(&watchDirFlags, "watch-dir", []string{"."}, "Directories watched in supervised reload mode (can be repeated)")
	flag.BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `emmet-serve - launch shim for the emmet API

Usage:
  emmet-serve [flags]          Exec the process manager in place
  emmet-serve print [flags]    Print the command line without launching
  emmet-serve run [flags]      Launch supervised (signal relay, reload watch)
  emmet-serve check [flags]    Preflight only: binaries and tracing agent

Flags:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	setupLogging()

	cfg, err := launch.Load(configFlag)
	if err != nil {
		fatal("configuration: %v", err)
	}
	applyFlags(&cfg)

	args := flag.Args()
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "":
		cmdLaunch(cfg)
	case "print":
		fmt.Println(strings.Join(cfg.Command(), " "))
	case "run":
		cmdRun(cfg)
	case "check":
		cmdCheck(cfg)
	default:
		fatal("unknown command %q (try: print, run, check)", cmd)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if debugFlag || os.Getenv("EMMET_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// applyFlags lets explicitly set flags win over environment and file.
func applyFlags(cfg *launch.Config) {
	if flag.CommandLine.Changed("bind-host") {
		cfg.Host = bindHostFlag
	}
	if flag.CommandLine.Changed("port") {
		cfg.Port = portFlag
	}
	if flag.CommandLine.Changed("workers") {
		cfg.Workers = workersFlag
	}
	if flag.CommandLine.Changed("max-requests") {
		cfg.MaxRequests = maxReqFlag
	}
	if flag.CommandLine.Changed("max-requests-jitter") {
		cfg.MaxRequestsJitter = jitterFlag
	}
	if flag.CommandLine.Changed("reload") {
		cfg.Reload = reloadFlag
	}
	if flag.CommandLine.Changed("app") {
		cfg.App = appFlag
	}
}

// cmdLaunch replaces this process with the manager invocation. On success
// nothing of the launcher remains.
func cmdLaunch(cfg launch.Config) {
	warnPreflight(cfg)
	argv := cfg.Command()
	if err := execve.Exec(argv, cfg.Environ()); err != nil {
		fatal("exec %s: %v", argv[0], err)
	}
}

// supervisedCommand builds the manager argv for supervised mode. The
// supervisor owns reload watching there, so the manager's own file watcher
// is suppressed to keep a single watcher on the tree.
func supervisedCommand(cfg launch.Config) []string {
	cfg.Reload = false
	return cfg.Command()
}

func cmdRun(cfg launch.Config) {
	warnPreflight(cfg)
	argv := supervisedCommand(cfg)
	if _, err := preflight.ResolveBinary(argv[0]); err != nil {
		fatal("%v", err)
	}

	signals := make(chan os.Signal, 4)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var reload <-chan struct{}
	if cfg.Reload {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ticks, err := supervise.Watch(ctx, watchDirFlags, []string{".py"}, 0)
		if err != nil {
			fatal("reload watch: %v", err)
		}
		slog.Info("reload mode: watching for source changes", "dirs", watchDirFlags)
		reload = ticks
	}

	code, err := supervise.New(supervise.ExecRunner{}).Run(argv, cfg.Environ(), supervise.Options{
		Signals: signals,
		Reload:  reload,
	})
	if err != nil {
		slog.Error("supervised run failed", "error", err)
	}
	os.Exit(code)
}

func cmdCheck(cfg launch.Config) {
	if !runChecks(cfg, os.Stdout) {
		os.Exit(1)
	}
}

// runChecks reports the preflight results to out and returns false on hard
// failures: a missing binary or an incomplete application environment. An
// unreachable tracing agent is only a warning, since the tracing wrapper
// degrades to untraced operation on its own.
func runChecks(cfg launch.Config, out io.Writer) bool {
	ok := true
	env := cfg.Environ()

	for _, bin := range checkBinaries(cfg) {
		path, err := preflight.ResolveBinary(bin)
		if err != nil {
			fmt.Fprintf(out, "missing: %v\n", err)
			ok = false
			continue
		}
		fmt.Fprintf(out, "ok: %s -> %s\n", bin, path)
	}

	if cfg.AgentHost != "" {
		if err := preflight.CheckAgent(cfg.AgentHost, cfg.AgentPort, 0); err != nil {
			fmt.Fprintf(out, "warn: %v\n", err)
		} else {
			fmt.Fprintf(out, "ok: tracing agent %s:%d\n", cfg.AgentHost, cfg.AgentPort)
		}
	}

	if err := preflight.CheckAppEnv(env); err != nil {
		fmt.Fprintf(out, "missing: %v\n", err)
		ok = false
	} else if uri, set := preflight.AppMongoURI(env); set {
		fmt.Fprintf(out, "ok: application database %s\n", uri)
	} else {
		fmt.Fprintf(out, "ok: application environment\n")
	}

	fmt.Fprintf(out, "command: %s\n", strings.Join(cfg.Command(), " "))
	return ok
}

func checkBinaries(cfg launch.Config) []string {
	bins := []string{cfg.ManagerPath}
	if cfg.AgentHost != "" {
		bins = append([]string{cfg.WrapperPath}, bins...)
	}
	return bins
}

// warnPreflight surfaces likely launch problems early without blocking the
// launch; after the exec the external tools own their failures.
func warnPreflight(cfg launch.Config) {
	if cfg.AgentHost != "" {
		if err := preflight.CheckAgent(cfg.AgentHost, cfg.AgentPort, 0); err != nil {
			slog.Warn("continuing without verified tracing agent", "error", err)
		}
	}
	if err := preflight.CheckAppEnv(cfg.Environ()); err != nil {
		slog.Warn("application environment incomplete, workers may crash on boot", "error", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "emmet-serve: "+format+"\n", args...)
	os.Exit(1)
}
