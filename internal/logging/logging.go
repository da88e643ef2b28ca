// Package logging installs the process logger and keeps the most recent
// records in memory for the server.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
)

const logFileName = "templateassist.log"

// Options controls where Setup sends records.
type Options struct {
	// Dir receives the log file. Empty disables the file.
	Dir     string
	Debug   bool
	Verbose bool
	// Stderr is used in verbose mode, os.Stderr when nil.
	Stderr io.Writer
}

// SyncWriter is a thread-safe writer that prevents interleaved output.
type SyncWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (sw *SyncWriter) Write(p []byte) (n int, err error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}

// Setup installs the default slog logger. Records go to the log file and to
// the returned Recorder; in verbose mode they go to stderr through
// charmbracelet/log instead of the file. The returned func closes the file.
func Setup(opts Options) (*Recorder, func() error, error) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	recorder := NewRecorder(DefaultRecorderSize)
	closer := func() error { return nil }

	if opts.Verbose {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		charmLevel := charmlog.InfoLevel
		if opts.Debug {
			charmLevel = charmlog.DebugLevel
		}
		charmLogger := charmlog.NewWithOptions(NewSyncWriter(stderr), charmlog.Options{
			Level:           charmLevel,
			ReportCaller:    opts.Debug,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "templateassist",
		})
		charmlog.SetDefault(charmLogger)
		slog.SetDefault(slog.New(charmLogger))
		return recorder, closer, nil
	}

	var out io.Writer = recorder
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(filepath.Join(opts.Dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(file, recorder)
		closer = file.Close
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(NewSyncWriter(out), &slog.HandlerOptions{Level: level})))
	slog.Debug("log created", "dir", opts.Dir)
	return recorder, closer, nil
}

// RecoverPanic is a common function to handle panics gracefully.
// It logs the error, creates a panic log file with stack trace,
// and executes an optional cleanup function.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		slog.Error("panic", "name", name, "value", r)

		timestamp := time.Now().Format("20060102-150405")
		filename := fmt.Sprintf("templateassist-panic-%s-%s.log", name, timestamp)

		file, err := os.Create(filename)
		if err != nil {
			slog.Error("failed to create panic log file", "path", filename, "error", err)
		} else {
			defer file.Close()
			fmt.Fprintf(file, "Panic in %s: %v\n\n", name, r)
			fmt.Fprintf(file, "Time: %s\n\n", time.Now().Format(time.RFC3339))
			fmt.Fprintf(file, "Stack Trace:\n%s\n", string(debug.Stack()))
			slog.Info("panic details written", "path", filename)
		}

		if cleanup != nil {
			cleanup()
		}
	}
}
