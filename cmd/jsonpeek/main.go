// Package main is the entry point for the jsonpeek capture daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/jsonpeek/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		cancel()
	}()

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

// listFlag collects a repeatable string flag.
type listFlag []string

func (f *listFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *listFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func parseFlags() app.Options {
	var opts app.Options
	var breakpoints listFlag
	var adapterArgs string
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.AdapterCommand, "adapter", "", "Debug adapter command (stdio transport)")
	flag.StringVar(&adapterArgs, "adapter-args", "", "Space-separated arguments for the adapter command")
	flag.StringVar(&opts.AdapterAddr, "addr", "", "Debug adapter address (socket transport)")
	flag.StringVar(&opts.AdapterID, "adapter-id", "", "DAP adapter identifier")
	flag.StringVar(&opts.Program, "program", "", "Debuggee entry file")
	flag.BoolVar(&opts.Attach, "attach", false, "Attach to a running debuggee instead of launching")
	flag.StringVar(&opts.Runtime, "runtime", "", "Serialization dialect (nodejs, python, dotnet, go)")
	flag.Var(&breakpoints, "break", "Capture breakpoint as path:line (repeatable)")
	flag.StringVar(&opts.OutputDir, "out", "", "Capture artifact directory")
	flag.StringVar(&opts.LogPath, "log", "", "Log file path")
	flag.BoolVar(&opts.Verbose, "v", false, "Log to stderr")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "jsonpeek - breakpoint-triggered JSON value capture\n\n")
		fmt.Fprintf(os.Stderr, "Usage: jsonpeek [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  jsonpeek -adapter node -adapter-args dap.js -program app.js -break app.js:42\n")
		fmt.Fprintf(os.Stderr, "  jsonpeek -addr 127.0.0.1:5678 -attach -runtime python -break main.py:10\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("jsonpeek %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if adapterArgs != "" {
		opts.AdapterArgs = strings.Fields(adapterArgs)
	}
	opts.Breakpoints = breakpoints

	return opts
}
