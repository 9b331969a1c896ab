package main

import (
	"fmt"
	"log/slog"
	"os"

	"ytm-desktop/internal/sessionlog"
)

var openMainLogFn = sessionlog.OpenFile

// setupLogging installs the default slog logger: text to stderr, with warnings
// and errors also appended to logs/main.log. The returned func closes the file.
func setupLogging(opts launchOptions) func() {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	logFile, err := openMainLogFn(sessionlog.PathIn(opts.ConfigDir))
	if err != nil {
		slog.SetDefault(slog.New(base))
		slog.Warn("[log] main log unavailable, logging to stderr only", "error", err)
		return func() {}
	}
	slog.SetDefault(slog.New(sessionlog.NewTeeHandler(base, slog.LevelWarn, logFile.Write)))
	slog.Debug("[DEBUG-LOG] main log opened", "path", logFile.Path())
	return func() {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "[log] close main log: %v\n", err)
		}
	}
}
