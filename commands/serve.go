package commands

import (
	"context"
	"synctext/config"
	"synctext/datastore/docfile"
	"synctext/swarm/node"

	log "github.com/sirupsen/logrus"
)

// RunServe runs one collaborative editor process for the given user
// until the process is terminated.
func RunServe(ctx context.Context, cfg *config.Config, userID string) {
	// Make sure the user has a document before the poll loop starts.
	docs, err := docfile.New(cfg.Paths.DocumentDir)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	if err := docs.Seed(userID); err != nil {
		log.Fatalf("Failed to seed document: %v", err)
	}

	n, err := node.New(cfg, userID)
	if err != nil {
		log.Fatalf("Failed to start node: %v", err)
	}
	defer n.Close()

	if err := n.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Node stopped: %v", err)
	}
}
