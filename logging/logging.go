// Package logging builds the zap loggers used by the command line tools.
package logging

import (
	"go.uber.org/zap"
)

// New returns a JSON production logger, or a console logger with development settings, at the
// given level ("debug", "info", "warn", "error").
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	return cfg.Build()
}
