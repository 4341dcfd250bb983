package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with variadic "key", value fields and automatic
// secret redaction. Output goes to stderr so it never interleaves with
// workflow command output on stdout.
type Logger struct {
	logger   zerolog.Logger
	redactor *Redactor
}

// New creates a new logger instance
func New(level, format string) *Logger {
	logLevel := parseLogLevel(level)
	zerolog.SetGlobalLevel(logLevel)

	var logger zerolog.Logger

	// Configure output format
	if format == "console" {
		logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	return &Logger{
		logger:   logger,
		redactor: NewRedactor(),
	}
}

func (l *Logger) Info(msg string, fields ...any) {
	event := l.logger.Info()
	l.addFields(event, fields...)
	event.Msg(msg)
}

func (l *Logger) Error(msg string, err error, fields ...any) {
	event := l.logger.Error().Err(err)
	l.addFields(event, fields...)
	event.Msg(msg)
}

func (l *Logger) Warn(msg string, fields ...any) {
	event := l.logger.Warn()
	l.addFields(event, fields...)
	event.Msg(msg)
}

func (l *Logger) Debug(msg string, fields ...any) {
	event := l.logger.Debug()
	l.addFields(event, fields...)
	event.Msg(msg)
}

func (l *Logger) Fatal(msg string, err error, fields ...any) {
	event := l.logger.Fatal().Err(err)
	l.addFields(event, fields...)
	event.Msg(msg)
}

// addFields attaches "key", value pairs, scrubbing sensitive keys. Redaction
// happens here, before any value reaches the sink.
func (l *Logger) addFields(event *zerolog.Event, fields ...any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if l.redactor.IsSensitive(key) {
			event.Str(key, RedactedValue)
			continue
		}
		event.Interface(key, fields[i+1])
	}
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
