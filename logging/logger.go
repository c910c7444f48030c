package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the zap logger for the given environment. "local" and
// "development" get the human readable development logger, "production" gets
// the JSON production logger and anything else the example logger.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "local", "development":
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("build development logger: %w", err)
		}
		return l, nil
	case "production":
		l, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("build production logger: %w", err)
		}
		return l, nil
	default:
		return zap.NewExample(), nil
	}
}
