package config

import (
	"testing"
	"time"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Match.Dim != 128 {
		t.Errorf("expected default descriptor dim 128, got %d", cfg.Match.Dim)
	}
	if cfg.Match.Threshold != 0.6 {
		t.Errorf("expected default threshold 0.6, got %f", cfg.Match.Threshold)
	}
	if cfg.Stream.ThrottleInterval != 500*time.Millisecond {
		t.Errorf("expected default throttle interval 500ms, got %s", cfg.Stream.ThrottleInterval)
	}
	if cfg.Encoder.Timeout != 5*time.Second {
		t.Errorf("expected default encoder timeout 5s, got %s", cfg.Encoder.Timeout)
	}
	if cfg.Stream.SweepInterval != 60*time.Second {
		t.Errorf("expected default sweep interval 60s, got %s", cfg.Stream.SweepInterval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "0.75")
	t.Setenv("DESCRIPTOR_DIM", "512")
	t.Setenv("THROTTLE_INTERVAL", "250ms")

	cfg := Load()

	if cfg.Match.Threshold != 0.75 {
		t.Errorf("expected threshold 0.75, got %f", cfg.Match.Threshold)
	}
	if cfg.Match.Dim != 512 {
		t.Errorf("expected dim 512, got %d", cfg.Match.Dim)
	}
	if cfg.Stream.ThrottleInterval != 250*time.Millisecond {
		t.Errorf("expected throttle interval 250ms, got %s", cfg.Stream.ThrottleInterval)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "2.5")
	t.Setenv("DESCRIPTOR_DIM", "-1")
	t.Setenv("ENCODER_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Match.Threshold != 0.6 {
		t.Errorf("out-of-range threshold should fall back to 0.6, got %f", cfg.Match.Threshold)
	}
	if cfg.Match.Dim != 128 {
		t.Errorf("negative dim should fall back to 128, got %d", cfg.Match.Dim)
	}
	if cfg.Encoder.Timeout != 5*time.Second {
		t.Errorf("unparseable timeout should fall back to 5s, got %s", cfg.Encoder.Timeout)
	}
}
