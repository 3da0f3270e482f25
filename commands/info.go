package commands

import (
	"context"
	"synctext/config"
	"synctext/datastore/state"
	"synctext/swarm/registry"

	log "github.com/sirupsen/logrus"
)

// RunInfo prints the registry contents and the most recent session
// status of each registered user.
func RunInfo(ctx context.Context, cfg *config.Config) {
	reg, err := registry.Open(cfg.Paths.RegistryPath, cfg.Paths.PipeDir)
	if err != nil {
		log.Fatalf("Failed to open registry: %v", err)
	}
	defer reg.Close()

	status, err := state.New(cfg.Paths.DocumentDir)
	if err != nil {
		log.Fatalf("Failed to open status store: %v", err)
	}

	users := reg.Users()
	log.Infof("Registry: %d user(s) registered", len(users))

	for _, id := range users {
		st, err := status.Load(id)
		if err != nil {
			log.Infof("User: %s (no session status)", id)
			continue
		}
		log.Infof("User: %s, lines: %d, last merge: %v, last applied ts: %d",
			st.UserID, st.LineCount, st.LastMerge, st.LastAppliedTS)
		for _, msg := range st.Notifications {
			log.Infof("  %s", msg)
		}
	}
}
