// Package logger builds the zap loggers used by the binaries.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls log level, encoding and optional file rotation.
type Options struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json or console
	Directory  string `yaml:"directory"`
	FileName   string `yaml:"fileName"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

// DefaultOptions logs JSON at info level to stderr only.
func DefaultOptions() Options {
	return Options{
		Level:      "info",
		Format:     "json",
		FileName:   "bcbp.log",
		MaxSizeMB:  25,
		MaxAgeDays: 7,
		MaxBackups: 5,
	}
}

// New returns a logger writing to stderr and, when Directory is set, to a
// rotated file inside it.
func New(opts Options) (*zap.Logger, error) {
	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}

	if opts.Directory != "" {
		if err := os.MkdirAll(opts.Directory, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		name := opts.FileName
		if name == "" {
			name = "bcbp.log"
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opts.Directory, name),
			MaxSize:    opts.MaxSizeMB,
			MaxAge:     opts.MaxAgeDays,
			MaxBackups: opts.MaxBackups,
			Compress:   opts.Compress,
		}))
	}

	core, err := newCore(opts, zapcore.NewMultiWriteSyncer(sinks...))
	if err != nil {
		return nil, err
	}
	return zap.New(core, zap.AddCaller()), nil
}

func newCore(opts Options, out zapcore.WriteSyncer) (zapcore.Core, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch opts.Format {
	case "", "json":
		enc = zapcore.NewJSONEncoder(encoderConfig)
	case "console":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("log format %q", opts.Format)
	}

	return zapcore.NewCore(enc, out, level), nil
}
