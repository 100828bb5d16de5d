package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.PeerID != 1 {
		t.Errorf("PeerID = %d, want 1", cfg.PeerID)
	}
	if len(cfg.Peers) != 2 {
		t.Errorf("len(Peers) = %d, want 2", len(cfg.Peers))
	}

	if _, err := os.Stat(ConfigPath(dir)); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.PeerID = 2
	cfg.ListenPort = 9102
	path := filepath.Join(dir, ConfigFileName)
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if loaded.PeerID != 2 {
		t.Errorf("PeerID = %d, want 2", loaded.PeerID)
	}
	if loaded.ListenPort != 9102 {
		t.Errorf("ListenPort = %d, want 9102", loaded.ListenPort)
	}
}

func TestConfigSelfAndOtherPeerID(t *testing.T) {
	cfg := DefaultConfig()

	self, err := cfg.Self()
	if err != nil {
		t.Fatalf("Self() error = %v", err)
	}
	if self.Port != 9101 {
		t.Errorf("Self().Port = %d, want 9101", self.Port)
	}

	other, err := cfg.OtherPeerID()
	if err != nil {
		t.Fatalf("OtherPeerID() error = %v", err)
	}
	if other != 2 {
		t.Errorf("OtherPeerID() = %d, want 2", other)
	}
}
