package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02 15:04:05"

// Logger wraps a zerolog.Logger together with the log file it may own.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// NewLogger builds the run logger: human-readable console output (errors on
// stderr, the rest on stdout), plus a JSON copy in logging.output_file when
// configured.
func NewLogger(config LoggingConfig) (*Logger, error) {
	return newLogger(config, os.Stdout, os.Stderr)
}

func newLogger(config LoggingConfig, stdout, stderr io.Writer) (*Logger, error) {
	zerolog.TimeFieldFormat = consoleTimeFormat
	zerolog.ErrorFieldName = "err"

	var writers []io.Writer
	writers = append(writers, consoleWriter{
		out: zerolog.ConsoleWriter{Out: stdout, TimeFormat: consoleTimeFormat},
		err: zerolog.ConsoleWriter{Out: stderr, TimeFormat: consoleTimeFormat},
	})

	var logFile *os.File
	if strings.TrimSpace(config.OutputFile) != "" {
		var err error
		logFile, err = os.OpenFile(config.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, logFile)
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(parseLevel(config.Level)).
		With().Timestamp().Logger()

	return &Logger{Logger: zl, file: logFile}, nil
}

// consoleWriter routes error and above to err, everything else to out.
type consoleWriter struct {
	out zerolog.ConsoleWriter
	err zerolog.ConsoleWriter
}

func (w consoleWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w consoleWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.ErrorLevel && level != zerolog.NoLevel {
		return w.err.Write(p)
	}
	return w.out.Write(p)
}

// NopLogger discards everything.
func NopLogger() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

func (l *Logger) Close() {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
