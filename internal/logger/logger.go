// Package logger constructs the process-wide zap logger, matching the
// teacher's pkg/logger usage pattern: a production JSON encoder by default,
// a development console encoder for local runs.
package logger

import "go.uber.org/zap"

// Config mirrors the LoggingConfig shape every teacher service's bootstrap
// config carries.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err == nil {
		zcfg.Level = level
	}

	return zcfg.Build()
}
