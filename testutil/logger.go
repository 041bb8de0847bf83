// Copyright (C) 2019-2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// TestLogger writes through the test's log, so output only shows for failing
// or verbose tests.
type TestLogger struct {
	*zap.Logger
	traceVerboseLogger *zap.Logger
}

func (tl *TestLogger) Intercept(hook func(entry zapcore.Entry) error) {
	tl.Logger = tl.Logger.WithOptions(zap.Hooks(hook))
	tl.traceVerboseLogger = tl.traceVerboseLogger.WithOptions(zap.Hooks(hook))
}

func (tl *TestLogger) Silence() {
	atomicLevel := zap.NewAtomicLevelAt(zapcore.FatalLevel)
	tl.Logger = tl.Logger.WithOptions(zap.IncreaseLevel(atomicLevel))
	tl.traceVerboseLogger = tl.traceVerboseLogger.WithOptions(zap.IncreaseLevel(atomicLevel))
}

func (tl *TestLogger) Trace(msg string, fields ...zap.Field) {
	tl.traceVerboseLogger.Log(zapcore.DebugLevel, msg, fields...)
}

func (tl *TestLogger) Verbo(msg string, fields ...zap.Field) {
	tl.traceVerboseLogger.Log(zapcore.DebugLevel, msg, fields...)
}

func MakeLogger(t testing.TB, fields ...zap.Field) *TestLogger {
	logger := zaptest.NewLogger(t, zaptest.Level(zapcore.DebugLevel), zaptest.WrapOptions(zap.AddCaller()))
	logger = logger.With(fields...)

	traceVerboseLogger := logger.WithOptions(zap.AddCallerSkip(1))

	return &TestLogger{Logger: logger, traceVerboseLogger: traceVerboseLogger}
}
