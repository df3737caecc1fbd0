package telemetry

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/brunoscheufler/bankterminal/constants"
	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Telemetry provides centralized logging and stats collection
type Telemetry struct {
	Logger         *slog.Logger
	LogCapture     *LogCapture
	StatsCollector *StatsCollector
}

type options struct {
	cliMode  bool
	logLevel slog.Level
	output   io.Writer
}

// Option configures a Telemetry instance
type Option func(*options)

// WithCLIMode keeps log output inside the capture buffer so it does not draw over the TUI.
func WithCLIMode(enabled bool) Option {
	return func(o *options) {
		o.cliMode = enabled
	}
}

// WithLogLevel sets the minimum level by name (debug, info, warn, error).
// Unknown names leave the current level in place.
func WithLogLevel(level string) Option {
	return func(o *options) {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(level)); err == nil {
			o.logLevel = parsed
		}
	}
}

// WithOutput replaces stderr as the destination for log lines outside CLI mode.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// New creates a new telemetry instance
func New(opts ...Option) *Telemetry {
	o := options{
		logLevel: slog.LevelDebug,
		output:   os.Stderr,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logCapture := NewLogCapture(constants.DefaultLogBufferSize)
	if !o.cliMode {
		logCapture.AddWriter(o.output)
	}

	handler := tint.NewHandler(logCapture, &tint.Options{
		Level:      o.logLevel,
		TimeFormat: time.TimeOnly,
		NoColor:    o.cliMode || !IsTerminal(o.output),
	})

	return &Telemetry{
		Logger:         slog.New(handler),
		LogCapture:     logCapture,
		StatsCollector: NewStatsCollector(nil),
	}
}

// SetupLogging makes the telemetry logger the process-wide default
func (t *Telemetry) SetupLogging() {
	slog.SetDefault(t.Logger)
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
