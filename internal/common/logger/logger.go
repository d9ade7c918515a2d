// Package logger wraps zap behind the action-oriented API used across
// the service: every line carries the service name, a machine-readable
// action and optional structured fields.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	z *zap.Logger
}

func New(service string) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "action"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		zapcore.DebugLevel,
	)
	z := zap.New(core).With(
		zap.String("service", service),
		zap.String("hostname", hostname()),
	)
	return &Logger{z: z}
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.z.Info(action, toZap(fields)...)
}

func (l *Logger) Debug(action string, fields map[string]any) {
	l.z.Debug(action, toZap(fields)...)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	fs := toZap(fields)
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	l.z.Error(action, fs...)
}

func (l *Logger) Sync() { _ = l.z.Sync() }

func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func hostname() string { h, _ := os.Hostname(); return h }
