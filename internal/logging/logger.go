// Package logging builds the daemon logger.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger that writes JSON to the given log file path
// and also writes to stderr. Instance name and PID are included as initial fields.
func New(logPath, instanceName string, debug bool) (*zap.Logger, error) {
	fileCore, err := newFileCore(logPath, debug)
	if err != nil {
		return nil, err
	}
	stderrCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(os.Stderr), levelFor(debug))
	return withFields(zap.New(zapcore.NewTee(fileCore, stderrCore)), instanceName), nil
}

// NewFile is New without the stderr copy, for the terminal client whose
// screen belongs to the UI.
func NewFile(logPath, instanceName string, debug bool) (*zap.Logger, error) {
	fileCore, err := newFileCore(logPath, debug)
	if err != nil {
		return nil, err
	}
	return withFields(zap.New(fileCore), instanceName), nil
}

func newFileCore(logPath string, debug bool) (zapcore.Core, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(file), levelFor(debug)), nil
}

func withFields(logger *zap.Logger, instanceName string) *zap.Logger {
	return logger.With(
		zap.String("instance", instanceName),
		zap.Int("pid", os.Getpid()),
	)
}

func levelFor(debug bool) zapcore.Level {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// NewConsole returns a stderr-only logger for the CLI and terminal client.
// Below warn level nothing is written unless debug is set.
func NewConsole(debug bool) *zap.Logger {
	level := zapcore.WarnLevel
	if debug {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
