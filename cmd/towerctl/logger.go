// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// cliLogger maps the finer grained tower levels onto debug.
type cliLogger struct {
	*zap.Logger
}

func (l *cliLogger) Trace(msg string, fields ...zap.Field) {
	l.Logger.Debug(msg, fields...)
}

func (l *cliLogger) Verbo(msg string, fields ...zap.Field) {
	l.Logger.Debug(msg, fields...)
}

func newLogger(verbosity string) (*cliLogger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(verbosity))
	if err != nil {
		return nil, fmt.Errorf("invalid verbosity %q: %w", verbosity, err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("[01-02|15:04:05.000]")
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &cliLogger{Logger: logger}, nil
}
