package whatsapp

import (
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger routes whatsmeow's internal logging into zap.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger adapts logger to waLog.Logger. Messages below minLevel
// (DEBUG, INFO, WARN, ERROR) are dropped.
func NewLogger(logger *zap.Logger, minLevel string) waLog.Logger {
	lvl, err := zapcore.ParseLevel(strings.ToLower(minLevel))
	if err != nil {
		lvl = zapcore.WarnLevel
	}
	if lvl > logger.Level() {
		logger = logger.WithOptions(zap.IncreaseLevel(lvl))
	}
	return &zapLogger{sugar: logger.Sugar()}
}

func (l *zapLogger) Errorf(msg string, args ...interface{}) { l.sugar.Errorf(msg, args...) }
func (l *zapLogger) Warnf(msg string, args ...interface{})  { l.sugar.Warnf(msg, args...) }
func (l *zapLogger) Infof(msg string, args ...interface{})  { l.sugar.Infof(msg, args...) }
func (l *zapLogger) Debugf(msg string, args ...interface{}) { l.sugar.Debugf(msg, args...) }

func (l *zapLogger) Sub(module string) waLog.Logger {
	return &zapLogger{sugar: l.sugar.Named(module)}
}
