package persistence

import (
	"errors"
	"testing"

	"github.com/mohsanabbas/firehose/internal/spouterr"
)

func TestConfigValidateRequiresZKRoot(t *testing.T) {
	cfg := Config{ZKServers: []string{"localhost:2181"}}
	if err := cfg.validate(); !errors.Is(err, spouterr.IllegalState) {
		t.Fatalf("expected IllegalState, got %v", err)
	}
}

func TestConfigValidateAccepted(t *testing.T) {
	cfg := Config{ZKServers: []string{"localhost:2181"}, ZKRoot: "/firehose"}
	if err := cfg.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DialTimeout <= 0 {
		t.Fatalf("expected a default dial timeout, got %v", cfg.DialTimeout)
	}
}
