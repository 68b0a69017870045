// Package logger provides leveled logging for the backtest engine and its
// collaborators, backed by zap.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.Mutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar *zap.SugaredLogger
)

func init() {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		level,
	)
	sugar = zap.New(core).Sugar()
}

func GetLevel() string {
	return level.String()
}

// SetLevel accepts "debug", "info", "warn" or "error". An empty string means
// debug, which is what the backtest harness passes when it wants everything.
func SetLevel(lvl string) {
	mu.Lock()
	defer mu.Unlock()
	if lvl == "" {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	parsed, err := zapcore.ParseLevel(lvl)
	if err != nil {
		Errorf("Unknown log level %v, keeping %v\n", lvl, level.String())
		return
	}
	level.SetLevel(parsed)
}

func Debug(args ...interface{}) {
	sugar.Debug(args...)
}

func Info(args ...interface{}) {
	sugar.Info(args...)
}

func Warn(args ...interface{}) {
	sugar.Warn(args...)
}

func Error(args ...interface{}) {
	sugar.Error(args...)
}

func Debugf(template string, args ...interface{}) {
	sugar.Debugf(template, args...)
}

func Infof(template string, args ...interface{}) {
	sugar.Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	sugar.Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	sugar.Errorf(template, args...)
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	_ = sugar.Sync()
}
