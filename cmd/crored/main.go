// Command crored is the crore cron daemon: it loads a config file and a
// tab file, builds the job set, and runs the scheduling loop forever.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aetxyz/crore/internal/config"
	"github.com/aetxyz/crore/internal/crond"
	"github.com/aetxyz/crore/internal/cronjob"
	"github.com/aetxyz/crore/internal/logging"
	"github.com/aetxyz/crore/internal/procexec"
	"github.com/aetxyz/crore/internal/statussrv"
	"github.com/aetxyz/crore/internal/tabfile"
	"github.com/aetxyz/crore/internal/wordsplit"
)

var version = "dev"

// repeatedFlag collects a flag that may be given more than once on the
// command line, e.g. -e K=V -e K2=V2 or -x <expr> -x <expr>.
type repeatedFlag []string

func (r *repeatedFlag) String() string { return strings.Join(*r, ",") }
func (r *repeatedFlag) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run implements the CLI entry point and returns the process exit code, so
// tests can drive it without calling os.Exit directly.
func run(args []string, stderr *os.File) int {
	parsed, err := parseFlags(args)
	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "crore: %v\n", err)
		return 1
	}
	if parsed.showVersion {
		fmt.Fprintln(stderr, version)
		return 0
	}

	cfg, err := buildConfig(parsed)
	if err != nil {
		fmt.Fprintf(stderr, "crore: %v\n", err)
		return 1
	}

	jobs, err := loadJobs(cfg, parsed.extra)
	if err != nil {
		fmt.Fprintf(stderr, "crore: %v\n", err)
		return 1
	}
	if len(jobs) == 0 {
		fmt.Fprintln(stderr, "crore: no cron jobs loaded; refusing to run an empty tab")
		return 1
	}

	logger := logging.New(stderr, cfg.Verbosity)

	envs := make([]procexec.Env, 0, len(cfg.Envs))
	for _, e := range cfg.Envs {
		envs = append(envs, procexec.Env{Key: e.Key, Value: e.Value})
		logger.EnvRegistered(e.Key, e.Value)
	}

	hooks, err := buildHooks(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "crore: %v\n", err)
		return 1
	}

	loop := crond.New(jobs, envs, hooks, cfg.Legacy, logger)

	var status *statussrv.Server
	if parsed.httpAddr != "" {
		status, err = startStatusServer(loop, parsed)
		if err != nil {
			fmt.Fprintf(stderr, "crore: %v\n", err)
			return 1
		}
	}
	installSignalHandler(status)

	// The scheduling loop never returns; the context it receives is not
	// used for cancellation (§5: signals are not handled by the core
	// beyond reaping children), only for plumbing through to exec.Cmd.
	loop.Run(context.Background())
	return 0
}

// parsedFlags is the result of parsing the command line, before it is
// merged with any config file.
type parsedFlags struct {
	after       string
	before      string
	envs        repeatedFlag
	legacy      bool
	noTabFile   bool
	private     bool
	silent      bool
	tabFile     string
	showVersion bool
	extra       repeatedFlag
	httpAddr    string
	statusToken string
	configPath  string
}

func parseFlags(args []string) (*parsedFlags, error) {
	fs := flag.NewFlagSet("crore", flag.ContinueOnError)
	p := &parsedFlags{}

	fs.StringVar(&p.after, "a", "", "after-hook command")
	fs.StringVar(&p.before, "b", "", "before-hook command")
	fs.Var(&p.envs, "e", "K=V environment variable for children (repeatable)")
	fs.BoolVar(&p.legacy, "l", false, "legacy mode: capture and log child stdout/stderr")
	fs.BoolVar(&p.noTabFile, "n", false, "do not read any tab file")
	fs.BoolVar(&p.private, "p", false, "verbosity=PRIVATE")
	fs.BoolVar(&p.silent, "s", false, "verbosity=SILENT")
	fs.StringVar(&p.tabFile, "t", "", "tab file path")
	fs.BoolVar(&p.showVersion, "v", false, "print version and exit")
	fs.Var(&p.extra, "x", "extra cron line appended to the loaded tab (repeatable)")
	fs.StringVar(&p.httpAddr, "http", "", "optional read-only status endpoint address (disabled if empty)")
	fs.StringVar(&p.statusToken, "status-token", "", "bearer token required by the status endpoint")
	fs.StringVar(&p.configPath, "config", "", "config file path (default $HOME/.config/crore/config)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return p, nil
}

// buildConfig loads the config file (if any), then layers the command
// line on top of it per §6: flags win on verbosity/tabfile, legacy and
// notabfile are set if either side sets them, hooks and env vars
// accumulate.
func buildConfig(p *parsedFlags) (*config.Config, error) {
	path := p.configPath
	if path == "" {
		path = defaultConfigPath()
	}
	fileCfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	cli := &config.Config{
		Legacy:    p.legacy,
		NoTabFile: p.noTabFile,
		TabFile:   p.tabFile,
	}
	switch {
	case p.silent:
		cli.Verbosity = logging.Silent
	case p.private:
		cli.Verbosity = logging.Private
	default:
		cli.Verbosity = fileCfg.Verbosity
	}
	if p.before != "" {
		cli.Before = append(cli.Before, p.before)
	}
	if p.after != "" {
		cli.After = append(cli.After, p.after)
	}
	for _, kv := range p.envs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid -e value %q: expected K=V", kv)
		}
		cli.Envs = append(cli.Envs, config.EnvVar{Key: k, Value: v})
	}

	return fileCfg.Merge(cli), nil
}

// loadJobs resolves the tab file (unless -n/notabfile was given), appends
// any -x extra lines, and parses every line into a cronjob.Job. Parse
// failures are fatal and carry the 1-based source line number, per §7;
// -x lines are numbered -1, -2, ... in the order given.
func loadJobs(cfg *config.Config, extra []string) ([]*cronjob.Job, error) {
	var lines []tabfile.Line

	if !cfg.NoTabFile {
		path := cfg.TabFile
		if path == "" {
			path = defaultTabPath()
		}
		loaded, err := tabfile.Read(path)
		if err != nil {
			return nil, fmt.Errorf("reading tab file: %w", err)
		}
		lines = loaded
	}
	for i, e := range extra {
		lines = append(lines, tabfile.Line{Number: -(i + 1), Text: e})
	}

	now := time.Now().UTC()
	jobs := make([]*cronjob.Job, 0, len(lines))
	for _, line := range lines {
		job, err := cronjob.New(line.Text, now, wordsplit.Split)
		if err != nil {
			return nil, fmt.Errorf("tab line %d: %w", line.Number, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// buildHooks word-splits the configured before/after command strings into
// argv and logs their registration. A config file or CLI flags may supply
// the hook more than once; the last one given wins, consistent with
// config.Merge's append-then-last-wins treatment of repeated keys.
func buildHooks(cfg *config.Config, logger *logging.Logger) (crond.Hooks, error) {
	var hooks crond.Hooks

	if len(cfg.Before) > 0 {
		argv, err := wordsplit.Split(cfg.Before[len(cfg.Before)-1])
		if err != nil {
			return crond.Hooks{}, fmt.Errorf("before-hook: %w", err)
		}
		hooks.Before = argv
		if len(argv) > 0 {
			logger.HookRegistered("before", argv)
		}
	}
	if len(cfg.After) > 0 {
		argv, err := wordsplit.Split(cfg.After[len(cfg.After)-1])
		if err != nil {
			return crond.Hooks{}, fmt.Errorf("after-hook: %w", err)
		}
		hooks.After = argv
		if len(argv) > 0 {
			logger.HookRegistered("after", argv)
		}
	}
	return hooks, nil
}

func startStatusServer(loop *crond.Loop, p *parsedFlags) (*statussrv.Server, error) {
	port, err := statusPort(p.httpAddr)
	if err != nil {
		return nil, fmt.Errorf("-http: %w", err)
	}

	opts := statussrv.Options{Port: port}
	if p.statusToken != "" {
		hash, err := statussrv.HashToken(p.statusToken)
		if err != nil {
			return nil, fmt.Errorf("hashing -status-token: %w", err)
		}
		opts.TokenHash = hash
	}

	server := statussrv.New(loop, version, opts)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			fmt.Fprintf(os.Stderr, "crore: status server: %v\n", err)
		}
	}()
	return server, nil
}

// statusPort accepts either a bare port ("8090") or a host:port pair
// ("127.0.0.1:8090"); the host is ignored since the status server always
// binds loopback regardless of what is supplied.
func statusPort(addr string) (int, error) {
	portStr := addr
	if _, p, err := net.SplitHostPort(addr); err == nil {
		portStr = p
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("invalid port %q", addr)
	}
	return port, nil
}

func defaultTabPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "crore", "tab")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "crore", "config")
}

// installSignalHandler shuts down the optional status server on SIGINT or
// SIGTERM. The scheduling loop itself has no graceful shutdown path (§5);
// once the status server has drained, the process simply exits.
func installSignalHandler(status *statussrv.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		if status != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = status.Shutdown(ctx)
		}
		os.Exit(0)
	}()
}
