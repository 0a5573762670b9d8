package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port %d, want 8080", cfg.Port)
	}
	if cfg.FlushInterval != 3*time.Second {
		t.Errorf("flush interval %v, want 3s", cfg.FlushInterval)
	}
	if cfg.FlushCount != 5 {
		t.Errorf("flush count %d, want 5", cfg.FlushCount)
	}
	if cfg.MinFlushBytes != 2048 {
		t.Errorf("min flush bytes %d, want 2048", cfg.MinFlushBytes)
	}
	if cfg.KeepTranscripts {
		t.Error("keep_transcripts should default off")
	}
	if cfg.MaxRoomSize != 0 {
		t.Errorf("max room size %d, want unlimited", cfg.MaxRoomSize)
	}
}
