/*
Package logx wraps zerolog for the whole service.

The global logger is built once from Options at startup. Packages either take a tagged
child with Component, or use the Info/Warn/Error/Fatal helpers, which accept trailing
key-value pairs in the style of log/slog.
*/
package logx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceName is attached to every log line.
const ServiceName = "chatcast"

// Options selects the format, threshold and destination of the global logger.
type Options struct {
	// Development switches to colored console output and a debug default level.
	Development bool

	// Level overrides the default level ("debug", "info", "warn", ...). Empty keeps the default.
	Level string

	// Output defaults to stdout for JSON and stderr for console output.
	Output io.Writer
}

// New builds a logger from opts without installing it.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Development {
		level = zerolog.DebugLevel
	}
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	out := opts.Output
	switch {
	case opts.Development:
		if out == nil {
			out = os.Stderr
		}
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case out == nil:
		out = os.Stdout
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", ServiceName).
		Caller().
		Logger(), nil
}

// InitGlobalLogger installs the logger built from opts as the process-wide logger.
func InitGlobalLogger(opts Options) error {
	logger, err := New(opts)
	if err != nil {
		return err
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = logger
	return nil
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child of the global logger tagged with the component name.
// It reads the global logger at call time, so call it after InitGlobalLogger.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// pairs turns alternating keys and values into a field map. Non-string keys are
// formatted with %v; a trailing key without a value is kept under "!MISSING".
func pairs(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}

	fields := make(map[string]any, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if i+1 == len(kv) {
			fields["!MISSING"] = key
			break
		}
		fields[key] = kv[i+1]
	}
	return fields
}

func emit(event *zerolog.Event, msg string, kv []any) {
	event.Fields(pairs(kv)).CallerSkipFrame(2).Msg(msg)
}

// Info logs msg at info level with optional key-value pairs.
func Info(msg string, kv ...any) {
	emit(Logger().Info(), msg, kv)
}

// Warn logs msg at warn level with optional key-value pairs.
func Warn(msg string, kv ...any) {
	emit(Logger().Warn(), msg, kv)
}

// Error logs msg and err at error level with optional key-value pairs.
func Error(err error, msg string, kv ...any) {
	emit(Logger().Error().Err(err), msg, kv)
}

// Fatal logs like Error and then exits the process with status 1.
func Fatal(err error, msg string, kv ...any) {
	emit(Logger().Fatal().Err(err), msg, kv)
}
