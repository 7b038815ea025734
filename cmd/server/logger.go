package main

import (
	"fmt"

	"annotation-review/internal/config"

	"go.uber.org/zap"
)

// newLogger builds a development or production zap logger at the
// configured level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}

	zc := zap.NewDevelopmentConfig()
	if cfg.Log.Mode == "production" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level

	return zc.Build()
}
