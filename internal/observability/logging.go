// Package observability wraps log/slog and go.opentelemetry.io/otel behind
// the gateway's house style, grounded on the teacher's
// internal/observability/logging.go: structured, leveled, with regex-based
// secret redaction, passed down as an explicit dependency rather than held
// in package-level globals (spec.md §9's "global process state" note).
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
)

// LogConfig controls the wrapped slog.Logger's handler.
type LogConfig struct {
	Level          string // debug|info|warn|error
	Format         string // json|text
	Output         io.Writer
	AddSource      bool
	RedactPatterns []string
}

// DefaultRedactPatterns scrub common secret shapes out of log lines before
// they are written.
var DefaultRedactPatterns = []string{
	`(?i)(api[_-]?key|token|secret|password)\s*[:=]\s*\S+`,
	`Bearer\s+[A-Za-z0-9._-]+`,
	`sk-[A-Za-z0-9]{20,}`,
}

// Logger is the gateway's structured logger.
type Logger struct {
	logger  *slog.Logger
	redacts []*regexp.Regexp
}

// NewLogger builds a Logger from cfg, defaulting to json/info/stderr and the
// default redaction patterns when unset.
func NewLogger(cfg LogConfig) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if len(cfg.RedactPatterns) == 0 {
		cfg.RedactPatterns = DefaultRedactPatterns
	}

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	patterns := make([]*regexp.Regexp, 0, len(cfg.RedactPatterns))
	for _, p := range cfg.RedactPatterns {
		if re, err := regexp.Compile(p); err == nil {
			patterns = append(patterns, re)
		}
	}

	return &Logger{logger: slog.New(handler), redacts: patterns}
}

// NewNop returns a Logger that discards everything; useful for tests.
func NewNop() *Logger {
	return NewLogger(LogConfig{Output: io.Discard})
}

func (l *Logger) redact(msg string) string {
	for _, re := range l.redacts {
		msg = re.ReplaceAllString(msg, "[REDACTED]")
	}
	return msg
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), redacts: l.redacts}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.logger.Debug(l.redact(fmt.Sprintf(format, args...)))
}

func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info(l.redact(fmt.Sprintf(format, args...)))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn(l.redact(fmt.Sprintf(format, args...)))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error(l.redact(fmt.Sprintf(format, args...)))
}
