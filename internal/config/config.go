// Package config loads the static peer table and self-identification used
// to bring up an ATM peer daemon.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the config file within a data directory.
const ConfigFileName = "config.yaml"

// PeerAddr is the network address of one peer.
type PeerAddr struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig controls the ambient logging stack.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config is the full static configuration for one peer process.
type Config struct {
	// PeerID identifies this process among the entries of Peers.
	PeerID int `yaml:"peer_id"`

	// Peers is the static peer-id -> {host, port} table. Both peers must
	// carry the same table.
	Peers map[int]PeerAddr `yaml:"peers"`

	// ListenPort is the port this peer's RMI registry listens on. It must
	// match Peers[PeerID].Port.
	ListenPort int `yaml:"listen_port"`

	// DataDir is where the account database lives.
	DataDir string `yaml:"data_dir"`

	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns a two-peer loopback configuration suitable for
// local development.
func DefaultConfig() *Config {
	return &Config{
		PeerID: 1,
		Peers: map[int]PeerAddr{
			1: {Host: "127.0.0.1", Port: 9101},
			2: {Host: "127.0.0.1", Port: 9102},
		},
		ListenPort: 9101,
		DataDir:    "~/.atmpeer",
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// OtherPeerID returns the peer id of this config's counterpart, assuming
// exactly two peers are configured.
func (c *Config) OtherPeerID() (int, error) {
	for id := range c.Peers {
		if id != c.PeerID {
			return id, nil
		}
	}
	return 0, fmt.Errorf("config: no peer other than %d in peer table", c.PeerID)
}

// Self returns this config's own address entry.
func (c *Config) Self() (PeerAddr, error) {
	addr, ok := c.Peers[c.PeerID]
	if !ok {
		return PeerAddr{}, fmt.Errorf("config: peer id %d not present in peer table", c.PeerID)
	}
	return addr, nil
}

// ConfigPath returns the path to the config file within dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(expandPath(dataDir), ConfigFileName)
}

// LoadConfig loads the config file from dataDir, creating a default one if
// it does not yet exist.
func LoadConfig(dataDir string) (*Config, error) {
	path := ConfigPath(dataDir)

	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("config: writing default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: creating directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}

	header := "# ATM peer daemon configuration.\n# peer_id must match one entry of the peers table below.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}

	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
