// Package logging builds the slog loggers used by the kstat command.
// Records are written by github.com/phuslu/log: a console writer when
// stderr is a terminal, JSON lines otherwise.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Formats accepted by New.
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatLogfmt  = "logfmt"
	FormatJSON    = "json"
)

// ParseLevel converts a level name to a log.Level. Unknown names
// are info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && log.IsTerminal(f.Fd())
}

func newWriter(w io.Writer, format string) log.Writer {
	if format == FormatAuto || format == "" {
		format = FormatJSON
		if isTerminal(w) {
			format = FormatConsole
		}
	}
	switch format {
	case FormatConsole:
		return &log.ConsoleWriter{
			ColorOutput:    isTerminal(w),
			QuoteString:    true,
			EndWithMessage: true,
			Writer:         w,
		}
	case FormatLogfmt:
		return &log.ConsoleWriter{
			Formatter: log.LogfmtFormatter{TimeField: "time"}.Formatter,
			Writer:    w,
		}
	default:
		return &log.IOWriter{Writer: w}
	}
}

// New returns a slog.Logger that writes to w (stderr if nil) at the
// named level. Every record carries module=name.
func New(w io.Writer, level, format, name string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	l := &log.Logger{
		Level:      ParseLevel(level),
		TimeField:  "time",
		TimeFormat: "15:04:05.000",
		Writer:     newWriter(w, format),
	}
	if format == FormatJSON {
		l.TimeFormat = ""
	}
	return l.Slog().With(slog.String("module", name))
}

// SetDefault installs New(os.Stderr, ...) as slog's default logger and
// returns it.
func SetDefault(level, format, name string) *slog.Logger {
	logger := New(os.Stderr, level, format, name)
	slog.SetDefault(logger)
	return logger
}
