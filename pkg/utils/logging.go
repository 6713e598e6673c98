package utils

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

//Logger returns the process-wide structured logger. Console output goes to
//stderr; when LOG_FILE is set, JSON records are additionally appended there.
func Logger() *zap.Logger {
	if logger != nil {
		return logger
	}

	consoleEnc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	consoleCore := zapcore.NewCore(consoleEnc, zapcore.AddSync(os.Stderr), zapcore.InfoLevel)

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logger = zap.New(consoleCore)
		return logger
	}

	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger = zap.New(consoleCore)
		return logger
	}

	fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	fileCore := zapcore.NewCore(fileEnc, zapcore.AddSync(f), zapcore.InfoLevel)
	logger = zap.New(zapcore.NewTee(consoleCore, fileCore))
	return logger
}
