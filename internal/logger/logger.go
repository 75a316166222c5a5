// Package logger configures the zap logger shared by the pipeline
// components. Console entries go to stderr; the optional run log is
// written as JSON lines and rotated by lumberjack.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process logger. It discards everything until Init or Setup
// is called, so packages may log unconditionally.
var Log = zap.NewNop()

// Rotation bounds the run log on disk.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultRotation keeps about a week of run logs.
var DefaultRotation = Rotation{MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 7, Compress: true}

// Options selects the level and destinations of log entries.
type Options struct {
	Level    string
	File     string    // run log path, empty for none
	Rotation Rotation  // applies to File
	Console  io.Writer // nil disables console output
}

// Init logs to stderr at level and, if file is set, to a rotated run log.
func Init(level, file string) error {
	return Setup(Options{Level: level, File: file, Rotation: DefaultRotation, Console: os.Stderr})
}

// Setup replaces Log according to o.
func Setup(o Options) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(o.Level))); err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	var cores []zapcore.Core
	if o.Console != nil {
		enc := encoding()
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc.ConsoleSeparator = " "
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(zapcore.AddSync(o.Console)), lvl))
	}
	if o.File != "" {
		w := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.Rotation.MaxSizeMB,
			MaxBackups: o.Rotation.MaxBackups,
			MaxAge:     o.Rotation.MaxAgeDays,
			Compress:   o.Rotation.Compress,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoding()), zapcore.AddSync(w), lvl))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return nil
}

func encoding() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:      "time",
		LevelKey:     "level",
		NameKey:      "component",
		CallerKey:    "caller",
		MessageKey:   "msg",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
		EncodeName:   zapcore.FullNameEncoder,
	}
}

// Named returns a child of Log for one pipeline component.
func Named(component string) *zap.Logger {
	return Log.Named(component)
}

// ForRun returns a component logger tagged with a run id.
func ForRun(component, runID string) *zap.Logger {
	return Log.Named(component).With(zap.String("run_id", runID))
}

// Reset restores the discarding logger.
func Reset() {
	Log = zap.NewNop()
}

// Sync flushes buffered entries.
func Sync() {
	_ = Log.Sync()
}

// Info logs at info level on Log.
func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

// Error logs at error level on Log.
func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}
