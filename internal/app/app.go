// Package app wires the jsonpeek subsystems together: configuration, the
// debug session, the capture orchestrator, the artifact viewer, and the
// rotating log.
package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/jsonpeek/internal/capture"
	"github.com/dshills/jsonpeek/internal/config"
	"github.com/dshills/jsonpeek/internal/debug"
	"github.com/dshills/jsonpeek/internal/debug/dialect"
	"github.com/dshills/jsonpeek/internal/logging"
	"github.com/dshills/jsonpeek/internal/viewer"
)

// Options are the command-line settings. Set fields override the config
// file.
type Options struct {
	// ConfigPath overrides the config file location.
	ConfigPath string

	// AdapterCommand launches a debug adapter on stdio.
	AdapterCommand string
	AdapterArgs    []string

	// AdapterAddr connects to a debug adapter over TCP.
	AdapterAddr string

	// AdapterID is the DAP adapter identifier sent in initialize.
	AdapterID string

	// Program is the debuggee entry file.
	Program string

	// Attach sends an attach request instead of launch.
	Attach bool

	// Runtime forces the serialization dialect.
	Runtime string

	// Breakpoints are "path:line" locations (1-based) to set with the
	// capture marker condition.
	Breakpoints []string

	// OutputDir overrides where artifacts are written.
	OutputDir string

	// LogPath overrides the log file location.
	LogPath string

	// Verbose also logs to stderr.
	Verbose bool
}

// App is the assembled jsonpeek process.
type App struct {
	opts    Options
	cfg     config.Config
	log     *logging.Logger
	sess    *debug.Session
	orch    *capture.Orchestrator
	view    *viewer.FileViewer
	watcher *config.Watcher

	done chan struct{}
}

// New loads configuration and builds the application. The debug session is
// not connected until Run.
func New(opts Options) (*App, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	mergeOptions(&cfg, opts)

	if cfg.Adapter.Command == "" && cfg.Adapter.Addr == "" {
		return nil, fmt.Errorf("no debug adapter: set -adapter or -addr, or configure [adapter]")
	}

	log := newLogger(cfg.Log, opts.Verbose)

	view, err := viewer.NewFileViewer(viewer.FileViewerOptions{
		Dir:     cfg.Capture.OutputDir,
		Log:     log,
		Compact: cfg.Capture.Compact,
	})
	if err != nil {
		log.Close()
		return nil, err
	}

	return &App{
		opts: opts,
		cfg:  cfg,
		log:  log,
		view: view,
		done: make(chan struct{}),
	}, nil
}

// mergeOptions applies command-line overrides onto the loaded config.
func mergeOptions(cfg *config.Config, opts Options) {
	if opts.AdapterCommand != "" {
		cfg.Adapter.Command = opts.AdapterCommand
		cfg.Adapter.Args = opts.AdapterArgs
		cfg.Adapter.Addr = ""
	}
	if opts.AdapterAddr != "" {
		cfg.Adapter.Addr = opts.AdapterAddr
		cfg.Adapter.Command = ""
	}
	if opts.Runtime != "" {
		cfg.Adapter.Runtime = opts.Runtime
	}
	if opts.OutputDir != "" {
		cfg.Capture.OutputDir = opts.OutputDir
	}
	if opts.LogPath != "" {
		cfg.Log.Path = opts.LogPath
	}
}

func newLogger(cfg config.LogConfig, verbose bool) *logging.Logger {
	if cfg.Path != "" {
		return logging.NewFile(logging.Options{
			Path:       cfg.Path,
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAgeDays: cfg.MaxAgeDays,
		})
	}
	if verbose {
		return logging.NewWriter(os.Stderr)
	}
	return logging.Discard()
}

// Run connects the debug session, arms the configured breakpoints, and
// blocks until the debuggee terminates or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	sess, err := a.connect()
	if err != nil {
		return err
	}
	a.sess = sess
	defer sess.Close()

	orch, err := capture.New(capture.Options{
		Adapter:     sess,
		Breakpoints: capture.NewSessionBreakpoints(sess.Breakpoints()),
		Viewer:      a.view,
		Source:      capture.FileSource{},
		Dialect:     a.pickDialect(),
		Log:         a.log,
		Marker:      a.cfg.Capture.Marker,
		InferWindow: a.cfg.Capture.Window,
	})
	if err != nil {
		return err
	}
	a.orch = orch

	handlers := capture.Attach(ctx, orch, sess)
	onTerminated := handlers.OnTerminated
	handlers.OnTerminated = func() {
		onTerminated()
		select {
		case <-a.done:
		default:
			close(a.done)
		}
	}
	handlers.OnOutput = func(category, output string) {
		a.log.Logf("adapter %s: %s", category, strings.TrimRight(output, "\n"))
	}
	sess.SetHandlers(handlers)

	if err := a.configure(ctx); err != nil {
		return err
	}

	a.startConfigWatch(ctx)
	defer a.stopConfigWatch()

	select {
	case <-ctx.Done():
		// Best effort; the adapter may already be gone.
		if err := sess.Disconnect(context.Background(), true); err != nil {
			a.log.Errorf("disconnect: %v", err)
		}
		return ctx.Err()
	case <-a.done:
		return nil
	}
}

func (a *App) connect() (*debug.Session, error) {
	if a.cfg.Adapter.Addr != "" {
		a.log.Logf("connecting to adapter at %s", a.cfg.Adapter.Addr)
		return debug.NewSocketSession(a.cfg.Adapter.Addr)
	}
	a.log.Logf("launching adapter: %s", a.cfg.Adapter.Command)
	return debug.NewStdioSession(a.cfg.Adapter.Command, a.cfg.Adapter.Args...)
}

// configure drives the DAP startup sequence: initialize, launch or attach,
// push breakpoints, configurationDone.
func (a *App) configure(ctx context.Context) error {
	sessConfig := debug.DefaultSessionConfig()
	if a.opts.AdapterID != "" {
		sessConfig.AdapterID = a.opts.AdapterID
	}

	if err := a.sess.Initialize(ctx, sessConfig); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	marker := a.cfg.Capture.Marker
	if marker == "" {
		marker = capture.MarkerCondition
	}
	for _, spec := range a.opts.Breakpoints {
		path, line, err := ParseBreakpoint(spec)
		if err != nil {
			return err
		}
		a.sess.Breakpoints().Add(path, line, marker)
	}

	debuggeeArgs := map[string]interface{}{}
	if a.opts.Program != "" {
		debuggeeArgs["program"] = a.opts.Program
	}
	if a.opts.Attach {
		if err := a.sess.Attach(ctx, debuggeeArgs); err != nil {
			return fmt.Errorf("attach: %w", err)
		}
	} else {
		if err := a.sess.Launch(ctx, debuggeeArgs); err != nil {
			return fmt.Errorf("launch: %w", err)
		}
	}

	if err := a.sess.SyncBreakpoints(ctx); err != nil {
		return fmt.Errorf("set breakpoints: %w", err)
	}
	if err := a.sess.ConfigurationDone(ctx); err != nil {
		return fmt.Errorf("configuration done: %w", err)
	}

	a.log.Logf("session %s configured", a.sess.ID())
	return nil
}

// pickDialect selects the serializer: an explicit runtime wins, then the
// debuggee file extension, then the passthrough fallback.
func (a *App) pickDialect() dialect.Dialect {
	if a.cfg.Adapter.Runtime != "" {
		return dialect.ForRuntime(dialect.Runtime(a.cfg.Adapter.Runtime))
	}
	if a.opts.Program != "" {
		return dialect.ForRuntime(dialect.Detect(a.opts.Program))
	}
	return dialect.ForRuntime(dialect.RuntimeGeneric)
}

func (a *App) startConfigWatch(ctx context.Context) {
	path := a.opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	w, err := config.Watch(ctx, path,
		func(cfg config.Config) {
			a.orch.Tune(cfg.Capture.Marker, cfg.Capture.Window)
			a.log.Logf("config reloaded from %s", path)
		},
		func(err error) {
			a.log.Errorf("config reload: %v", err)
		})
	if err != nil {
		a.log.Errorf("config watch: %v", err)
		return
	}
	a.watcher = w
}

func (a *App) stopConfigWatch() {
	if a.watcher != nil {
		a.watcher.Close()
	}
}

// Close releases resources held outside Run.
func (a *App) Close() error {
	return a.log.Close()
}

// ParseBreakpoint parses a "path:line" breakpoint spec with a 1-based line.
func ParseBreakpoint(spec string) (string, int, error) {
	i := strings.LastIndex(spec, ":")
	if i <= 0 || i == len(spec)-1 {
		return "", 0, fmt.Errorf("breakpoint %q: want path:line", spec)
	}

	line, err := strconv.Atoi(spec[i+1:])
	if err != nil || line < 1 {
		return "", 0, fmt.Errorf("breakpoint %q: line must be a positive number", spec)
	}
	return spec[:i], line, nil
}
