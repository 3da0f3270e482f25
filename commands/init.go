package commands

import (
	"context"
	"synctext/config"

	log "github.com/sirupsen/logrus"
)

// RunInit writes a config file with default settings.
func RunInit(ctx context.Context, cfg *config.Config) {
	if err := cfg.Save(); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	log.Info("Wrote default configuration")
}
