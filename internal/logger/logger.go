package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	current.Store(&l)
}

// Init configures the process logger. level is a zerolog level name
// ("debug", "info", ...); unknown or empty values mean info.
func Init(level string) {
	SetOutput(os.Stdout, level)
	Info("logger initialized", map[string]any{"level": L().GetLevel().String()})
}

// SetOutput swaps the log destination. Tests use it to capture output.
func SetOutput(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	l := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	current.Store(&l)
}

// L returns the underlying zerolog logger.
func L() *zerolog.Logger {
	return current.Load()
}

func Debug(msg string, fields map[string]any) {
	L().Debug().Fields(fields).Msg(msg)
}

func Info(msg string, fields map[string]any) {
	L().Info().Fields(fields).Msg(msg)
}

func Warn(msg string, fields map[string]any) {
	L().Warn().Fields(fields).Msg(msg)
}

func Error(msg string, fields map[string]any) {
	L().Error().Fields(fields).Msg(msg)
}

func Fatal(msg string, fields map[string]any) {
	L().Fatal().Fields(fields).Msg(msg)
}
