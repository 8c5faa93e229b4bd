// Package log wraps a process-wide zerolog logger used by every other package
// of the node. It is initialised once from the configuration and can be
// swapped in tests through SetOutput.
package log

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"path"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	RFC3339Milli = "2006-01-02T15:04:05.000Z07:00"
)

var (
	log   zerolog.Logger
	logMu sync.RWMutex
)

func init() {
	// $LOG_LEVEL lets tests raise verbosity without touching code.
	Init(cmp.Or(os.Getenv("LOG_LEVEL"), LogLevelError), "stderr", nil)
}

func current() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return log
}

func replace(logger zerolog.Logger) {
	logMu.Lock()
	log = logger
	logMu.Unlock()
}

// errorLevelWriter only forwards warnings and errors, so a dedicated file
// can collect the problems of a long running node.
type errorLevelWriter struct {
	io.Writer
}

var _ zerolog.LevelWriter = &errorLevelWriter{}

func (w *errorLevelWriter) Write(p []byte) (int, error) {
	return w.Writer.Write(p)
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.WarnLevel {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

func parseLevel(level string) (zerolog.Level, error) {
	switch level {
	case LogLevelDebug:
		return zerolog.DebugLevel, nil
	case LogLevelInfo:
		return zerolog.InfoLevel, nil
	case LogLevelWarn:
		return zerolog.WarnLevel, nil
	case LogLevelError:
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("invalid log level: %q", level)
	}
}

// Init configures the global logger. Output can be "stdout", "stderr" or a
// file path. If errorOutput is not nil, warnings and errors are also copied
// there without colors.
func Init(level, output string, errorOutput io.Writer) {
	lvl, err := parseLevel(level)
	if err != nil {
		panic(err.Error())
	}

	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			panic(fmt.Sprintf("cannot create log output: %v", err))
		}
		out = f
	}
	setOutput(lvl, out, errorOutput)
	logger := current()
	logger.Info().Msgf("logger construction succeeded at level %s with output %s", level, output)
}

// SetOutput redirects the global logger to w keeping the given level. It is
// mostly useful for tests that need to inspect log lines.
func SetOutput(level string, w io.Writer) {
	lvl, err := parseLevel(level)
	if err != nil {
		panic(err.Error())
	}
	setOutput(lvl, w, nil)
}

func setOutput(lvl zerolog.Level, out, errorOutput io.Writer) {
	var w io.Writer = zerolog.ConsoleWriter{Out: out, TimeFormat: RFC3339Milli}
	if errorOutput != nil {
		w = zerolog.MultiLevelWriter(w, &errorLevelWriter{zerolog.ConsoleWriter{
			Out:        errorOutput,
			TimeFormat: RFC3339Milli,
			NoColor:    true,
		}})
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.CallerSkipFrameCount = 3
	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		return fmt.Sprintf("%s/%s:%d", path.Base(path.Dir(file)), path.Base(file), line)
	}
	replace(zerolog.New(w).With().Timestamp().Caller().Logger().Level(lvl))
}

// Level returns the name of the current log level.
func Level() string {
	switch current().GetLevel() {
	case zerolog.DebugLevel:
		return LogLevelDebug
	case zerolog.InfoLevel:
		return LogLevelInfo
	case zerolog.WarnLevel:
		return LogLevelWarn
	default:
		return LogLevelError
	}
}

func Info(args ...any) {
	logger := current()
	logger.Info().Msg(fmt.Sprint(args...))
}

func Warn(args ...any) {
	logger := current()
	logger.Warn().Msg(fmt.Sprint(args...))
}

func Error(args ...any) {
	logger := current()
	logger.Error().Msg(fmt.Sprint(args...))
}

func Fatalf(template string, args ...any) {
	logger := current()
	logger.Fatal().Msgf(template+"\n"+string(debug.Stack()), args...)
}

// Debugw logs msg at debug level with the given key/value pairs.
func Debugw(msg string, keyvalues ...any) {
	logger := current()
	logger.Debug().Fields(keyvalues).Msg(msg)
}

// Infow logs msg at info level with the given key/value pairs.
func Infow(msg string, keyvalues ...any) {
	logger := current()
	logger.Info().Fields(keyvalues).Msg(msg)
}

// Warnw logs msg at warn level with the given key/value pairs.
func Warnw(msg string, keyvalues ...any) {
	logger := current()
	logger.Warn().Fields(keyvalues).Msg(msg)
}

// Errorw logs err with msg at error level.
func Errorw(err error, msg string) {
	logger := current()
	logger.Error().Err(err).Msg(msg)
}
