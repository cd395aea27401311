package logutils

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

func defaultLogger() *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(zapcore.InfoLevel),
	)
	return zap.New(core)
}

// ZapLogger returns the process-wide logger.
func ZapLogger() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = defaultLogger()
	}
	return logger
}

// SetZapLogger overrides the process-wide logger. Passing nil restores the default.
func SetZapLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// EnableFileLogging redirects the process-wide logger to a rotated log file.
func EnableFileLogging(opts FileOptions, level zapcore.Level) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		ZapSyncerWithRotation(opts),
		zap.NewAtomicLevelAt(level),
	)
	SetZapLogger(zap.New(core))
}
