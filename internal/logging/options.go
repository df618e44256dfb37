package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects and tunes the logger built by New.
type Options struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// JSON switches the slog handler to JSON output.
	JSON bool
	// File enables zap with a rotating file sink in addition to Output.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Output receives console logs; nil means os.Stderr.
	Output io.Writer
}

// New builds a Logger. With File set the result is a *ZapLogger teeing into
// the console and a lumberjack-rotated file; otherwise a *SlogLogger.
func New(o Options) Logger {
	out := o.Output
	if out == nil {
		out = os.Stderr
	}

	if o.File == "" {
		opts := &slog.HandlerOptions{Level: slogLevel(o.Level)}
		var h slog.Handler = slog.NewTextHandler(out, opts)
		if o.JSON {
			h = slog.NewJSONHandler(out, opts)
		}
		return NewSlogLogger(slog.New(h))
	}

	rotator := &lumberjack.Logger{
		Filename:   o.File,
		MaxSize:    withDefault(o.MaxSizeMB, 50),
		MaxBackups: withDefault(o.MaxBackups, 5),
		MaxAge:     withDefault(o.MaxAgeDays, 28),
		Compress:   true,
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapLevel(o.Level)
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(out), level),
	)

	return NewZapLogger(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}

func withDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func slogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zapLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
