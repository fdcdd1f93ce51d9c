// Package logger provides the process-wide structured logger built on zap.
// Until Init is called every function except Fatal logs to a no-op core, so library code and tests can log freely.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance.
var Log = zap.NewNop()

// Sugar is the sugared form of Log for printf-style call sites.
var Sugar = Log.Sugar()

// FileConfig holds rotating log file settings.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns the rotation settings used when only a path is given.
//
// Parameters:
//   - path: the log file path
//
// Returns:
//   - FileConfig: 50MB files, 3 backups, 7 days, compressed
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// Init initializes the global logger with console output and an optional rotating file.
//
// Parameters:
//   - level: one of debug, info, warn, error (empty means info)
//   - logFile: the log file path, or "" for console only
//
// Returns:
//   - error: error if the level is unknown
func Init(level string, logFile string) error {
	fileCfg := FileConfig{}
	if logFile != "" {
		fileCfg = DefaultFileConfig(logFile)
	}
	return InitWithFileConfig(level, fileCfg, true)
}

// InitWithFileConfig initializes the global logger with explicit file rotation settings.
// Set consoleOutput to false to log to the file only.
//
// Parameters:
//   - level: one of debug, info, warn, error (empty means info)
//   - fileCfg: rotation settings; an empty Path disables the file core
//   - consoleOutput: whether to tee to stdout
//
// Returns:
//   - error: error if the level is unknown
func InitWithFileConfig(level string, fileCfg FileConfig, consoleOutput bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var cores []zapcore.Core
	if consoleOutput {
		enc := zapcore.NewConsoleEncoder(encoderConfig(zapcore.TimeEncoderOfLayout("15:04:05.000"), zapcore.CapitalColorLevelEncoder))
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), lvl))
	}
	if fileCfg.Path != "" {
		w := &lumberjack.Logger{
			Filename:   fileCfg.Path,
			MaxSize:    fileCfg.MaxSizeMB,
			MaxBackups: fileCfg.MaxBackups,
			MaxAge:     fileCfg.MaxAgeDays,
			Compress:   fileCfg.Compress,
			LocalTime:  true,
		}
		enc := zapcore.NewConsoleEncoder(encoderConfig(zapcore.ISO8601TimeEncoder, zapcore.CapitalLevelEncoder))
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	Sugar = Log.Sugar()
	return nil
}

func encoderConfig(timeEnc zapcore.TimeEncoder, levelEnc zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		CallerKey:        "caller",
		EncodeTime:       timeEnc,
		EncodeLevel:      levelEnc,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
}

// ParseLevel converts a config level string into a zap level.
//
// Parameters:
//   - level: one of debug, info, warn, error, case-insensitive; empty means info
//
// Returns:
//   - zapcore.Level: the parsed level
//   - error: error if the level is not recognised
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Named returns a child of the global logger tagged with a component name.
// The child is bound to the logger current at call time.
//
// Parameters:
//   - component: the component name, e.g. "renderer"
//
// Returns:
//   - *zap.Logger: the named logger
func Named(component string) *zap.Logger {
	return Log.Named(component)
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}

// Debug logs a debug message.
func Debug(msg string, fields ...zap.Field) {
	Log.Debug(msg, fields...)
}

// Info logs an info message.
func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

// Warn logs a warning message.
func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}

// Error logs an error message.
func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}

// Fatal logs a fatal message and exits.
// Before Init the message goes to stderr so startup failures are never silent.
func Fatal(msg string, fields ...zap.Field) {
	fatalLogger().Fatal(msg, fields...)
}

// bootstrapOutput and bootstrapFatalHook back the pre-Init Fatal logger.
var (
	bootstrapOutput    zapcore.WriteSyncer    = os.Stderr
	bootstrapFatalHook zapcore.CheckWriteHook = zapcore.WriteThenFatal
)

// fatalLogger returns Log once it can write fatal entries, otherwise a console logger on bootstrapOutput.
func fatalLogger() *zap.Logger {
	if Log.Core().Enabled(zapcore.FatalLevel) {
		return Log
	}
	enc := zapcore.NewConsoleEncoder(encoderConfig(zapcore.ISO8601TimeEncoder, zapcore.CapitalLevelEncoder))
	return zap.New(zapcore.NewCore(enc, bootstrapOutput, zapcore.DebugLevel),
		zap.AddCaller(), zap.AddCallerSkip(1), zap.WithFatalHook(bootstrapFatalHook))
}
