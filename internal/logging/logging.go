// Package logging builds the zap logger shared across the service.
package logging

import (
	"strings"

	"go.uber.org/zap"
)

// New constructs a SugaredLogger configured for the given mode.
// Anything other than "prod"/"production" yields the development config.
func New(mode string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
