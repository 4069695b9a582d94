// Package logger provides centralized logging for the application.
// File: logger/logger.go
package logger

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ------------------- global loggers -------------------

// four logger levels accessible throughout the application
var (
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
	Debug *log.Logger
)

var (
	base  *zap.Logger
	level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
)

// ------------------- logger initialization -------------------

// InitLogger creates or reinitializes the logging system. It:
// - Ensures `./logs` exists.
// - Creates a timestamped JSON log file in `logs/`.
// - Writes human-readable lines to stdout and JSON lines to the file.
// - Bridges zap into the Info, Warn, Error and Debug *log.Logger values.
func InitLogger() error {
	if err := os.MkdirAll("./logs", 0700); err != nil {
		return err
	}

	logFileName := filepath.Join("logs", time.Now().Format("2006-01-02_15-04-05")+".log")
	file, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec
	if err != nil {
		return err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encoderCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), level),
	)
	base = zap.New(core, zap.AddCaller())

	if Info, err = zap.NewStdLogAt(base, zapcore.InfoLevel); err != nil {
		return err
	}
	if Warn, err = zap.NewStdLogAt(base, zapcore.WarnLevel); err != nil {
		return err
	}
	if Error, err = zap.NewStdLogAt(base, zapcore.ErrorLevel); err != nil {
		return err
	}
	if Debug, err = zap.NewStdLogAt(base, zapcore.DebugLevel); err != nil {
		return err
	}
	return nil
}

// SetLogLevel adjusts the minimum level depending on environment.
// Production drops Debug output; every other environment keeps it.
func SetLogLevel(env string) {
	if env == "production" {
		level.SetLevel(zapcore.InfoLevel)
		return
	}
	level.SetLevel(zapcore.DebugLevel)
}

// Zap exposes the underlying structured logger for components that want fields.
func Zap() *zap.Logger {
	return base
}

// Sync flushes any buffered log entries.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}

// init is called automatically at package load time. If initialization fails
// we fall back to the standard library logger, since ours isn't ready yet.
func init() {
	if err := InitLogger(); err != nil {
		log.Fatalf("Failed to initialise custom logger: %v", err)
	}
}
