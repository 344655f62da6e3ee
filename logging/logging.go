// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package logging builds the zap loggers used by relayd.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the log output.
type Config struct {
	// Level is the minimum level logged, as accepted by ParseLevel.
	Level string

	// File, if set, is written with rotation in place of stderr.
	File string

	// MaxSizeMB is the size at which File is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files retained.
	MaxBackups int
}

// New creates a logger writing console formatted entries.
//
// An unrecognised level falls back to info.
func New(cfg Config, options ...zap.Option) *zap.SugaredLogger {
	level, _ := ParseLevel(cfg.Level)
	return NewWithWriter(writer(cfg), level, options...)
}

// NewWithWriter creates a logger writing console formatted entries at or
// above the level to w.
func NewWithWriter(w io.Writer, level zapcore.LevelEnabler, options ...zap.Option) *zap.SugaredLogger {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		MessageKey:       "message",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	})
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core, options...).Sugar()
}

func writer(cfg Config) io.Writer {
	if cfg.File == "" {
		return os.Stderr
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
}

// ParseLevel converts a level name, in any case, to a zap level.
//
// Returns false, and the info level, if the name is not recognised.
func ParseLevel(s string) (zapcore.Level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zapcore.InfoLevel, false
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, false
	}
	return level, true
}
