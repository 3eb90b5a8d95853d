package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Encoder  EncoderConfig
	Match    MatchConfig
	Stream   StreamConfig
	Database DatabaseConfig
}

type EncoderConfig struct {
	URL     string        // base URL of the face encoder sidecar (defaults to http://localhost:8001)
	Timeout time.Duration // per-call deadline for encoder round-trips
}

type MatchConfig struct {
	Threshold float64 // minimum cosine similarity for a positive match
	Dim       int     // descriptor dimensionality, fixed system-wide
}

type StreamConfig struct {
	ThrottleInterval time.Duration // minimum gap between processed frames per connection
	SweepInterval    time.Duration // how often stale sessions are reaped
	MaxFrameBytes    int           // reject frames larger than this after decoding
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty means in-memory catalogue
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// tuning mirrors defaults.yaml. Keeping the defaults in an embedded file
// means operators can read the shipped values without digging through code.
type tuning struct {
	DescriptorDim       int     `yaml:"descriptor_dim"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	ThrottleInterval    string  `yaml:"throttle_interval"`
	EncoderTimeout      string  `yaml:"encoder_timeout"`
	SweepInterval       string  `yaml:"sweep_interval"`
	MaxFrameBytes       int     `yaml:"max_frame_bytes"`
}

// mustDuration parses a duration from the embedded defaults file.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic("invalid duration in embedded defaults.yaml: " + s)
	}
	return d
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float in (0, 1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a positive duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func Load() *Config {
	var t tuning
	if err := yaml.Unmarshal(defaultsYAML, &t); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Encoder: EncoderConfig{
			URL:     os.Getenv("ENCODER_URL"),
			Timeout: envDuration("ENCODER_TIMEOUT", mustDuration(t.EncoderTimeout)),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", t.SimilarityThreshold),
			Dim:       envInt("DESCRIPTOR_DIM", t.DescriptorDim),
		},
		Stream: StreamConfig{
			ThrottleInterval: envDuration("THROTTLE_INTERVAL", mustDuration(t.ThrottleInterval)),
			SweepInterval:    envDuration("SWEEP_INTERVAL", mustDuration(t.SweepInterval)),
			MaxFrameBytes:    envInt("MAX_FRAME_BYTES", t.MaxFrameBytes),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
	}
}
