// Package vlog constructs the structured logger shared by every subsystem
// of the collection. It wraps go.uber.org/zap behind a single New function
// so that call sites throughout segment, holder, optimizer and WAL code can
// use the same Infow/Warnw/Errorw/Debugw shape regardless of how the
// underlying encoder is configured.
package vlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger for the named service. Production builds
// get a JSON encoder at Info level; setting debug to true switches to a
// human-readable console encoder at Debug level, which is what local
// development and tests want.
func New(service string, debug bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.InitialFields = map[string]any{"service": service}

	logger, err := cfg.Build()
	if err != nil {
		// Falling back to a no-op logger keeps the collection usable even if
		// the configured sink (stderr, in the default config) can't be
		// opened; callers never have to nil-check the returned logger.
		logger = zap.NewNop()
	}
	return logger.Sugar()
}

// Noop returns a logger that discards everything, for tests that don't care
// about log output but still need to satisfy a *zap.SugaredLogger parameter.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
