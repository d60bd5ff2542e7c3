// Package logging provides the file logger used across jsonpeek. Log output
// goes to a size-rotated file so it never interferes with an attached
// debug adapter's stdio.
package logging

import (
	"io"
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes operational messages to a rotating log file. It is passed
// explicitly to the components that log; there is no package-level state.
type Logger struct {
	logger *log.Logger
	closer io.Closer
}

// Options configures a file logger.
type Options struct {
	// Path is the log file location.
	Path string

	// MaxSizeMB is the file size that triggers rotation.
	MaxSizeMB int

	// MaxBackups is how many rotated files to keep.
	MaxBackups int

	// MaxAgeDays is how long rotated files are retained.
	MaxAgeDays int
}

// DefaultOptions returns the standard rotation settings.
func DefaultOptions(path string) Options {
	return Options{
		Path:       path,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// NewFile creates a logger writing to a rotating file at opts.Path.
func NewFile(opts Options) *Logger {
	out := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}

	return &Logger{
		logger: log.New(out, "", log.LstdFlags),
		closer: out,
	}
}

// NewWriter creates a logger writing to w. Useful for tests.
func NewWriter(w io.Writer) *Logger {
	return &Logger{
		logger: log.New(w, "", log.LstdFlags),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard)
}

// Close releases the log file.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Logf writes a formatted message.
func (l *Logger) Logf(format string, v ...interface{}) {
	l.logger.Printf(format, v...)
}

// Errorf writes a formatted message at error prominence.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logger.Printf("error: "+format, v...)
}
