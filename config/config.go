package config

import (
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Config represents the configuration for a synctext process
type Config struct {
	// Default config file location
	configFile string

	Paths struct {
		PipeDir      string `json:"pipes"`     // Directory holding the per-user named pipes
		RegistryPath string `json:"registry"`  // Shared registry file, well known to all processes
		DocumentDir  string `json:"documents"` // Per-user document and status files
	} `json:"paths"`

	Sync struct {
		MergeThreshold     int `json:"merge_threshold"`   // Buffered updates that trigger broadcast and merge
		PollIntervalMs     int `json:"poll_interval_ms"`  // Document modification poll interval
		ListenerIdleWaitMs int `json:"listener_idle_ms"`  // Listener sleep when the channel has no data
		MaxNotifications   int `json:"max_notifications"` // Bounded notification log size
	} `json:"sync"`
}

// NewEmptyConfig generates a new configuration with default settings
func NewEmptyConfig(configFile string) *Config {
	cfg := &Config{}

	cfg.configFile = configFile

	cfg.Paths.PipeDir = "/tmp"
	cfg.Paths.RegistryPath = "/dev/shm/synctext_registry"
	cfg.Paths.DocumentDir = "/tmp/synctext/docs"

	cfg.Sync.MergeThreshold = 5
	cfg.Sync.PollIntervalMs = 2000
	cfg.Sync.ListenerIdleWaitMs = 100
	cfg.Sync.MaxNotifications = 5

	return cfg
}

func NewConfigFromFile(configFile string) (*Config, error) {
	cfg := NewEmptyConfig(configFile)
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to a file
func (c *Config) Save() error {
	log.Infof("Saving config to %s", c.configFile)

	// We'll marshall our structure to JSON and write it into a file
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configFile, data, 0644)
}

func (c *Config) Load() error {
	log.Infof("Loading config from %s", c.configFile)
	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, c); err != nil {
		return err
	}

	return nil
}
