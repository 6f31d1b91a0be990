// Package observability provides structured logging for the Stashboard services.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerConfig controls where and how log output is written.
type LoggerConfig struct {
	// FilePath is the rotated JSON log file. Empty disables file output.
	FilePath string
	// Production switches the console core to JSON encoding.
	Production bool
}

// NewLogger builds a zap logger that tees a rotated JSON file core with a
// console core. With an empty FilePath only the console core is active.
func NewLogger(cfg LoggerConfig) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	cores := make([]zapcore.Core, 0, 2)

	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), zap.InfoLevel))
	}

	var consoleEncoder zapcore.Encoder
	if cfg.Production {
		consoleEncoder = jsonEncoder
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.DebugLevel))

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// NopLogger returns a logger that discards everything. Services accept it as
// a stand-in when callers pass nil.
func NopLogger() *zap.Logger {
	return zap.NewNop()
}
