package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	// Mode picks the data source for the whole deployment: "archive"
	// replays the exported snapshot, "live" proxies the platform.
	Mode     string `yaml:"mode"`
	Platform struct {
		URL string `yaml:"url"`
	} `yaml:"platform"`
	Archive struct {
		// Dir holds the exported JSON tables. PostgresURL, when set,
		// loads the same tables from the export_documents table instead.
		Dir         string `yaml:"dir"`
		PostgresURL string `yaml:"postgres_url"`
		// Delay is the simulated latency on archive reads, keeping
		// loading-state UI behavior identical to live mode.
		Delay string `yaml:"delay"`
	} `yaml:"archive"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		// WarmInterval schedules periodic refreshes of the cached
		// list endpoints in live mode. Empty disables warming.
		WarmInterval string `yaml:"warm_interval"`
	} `yaml:"redis"`
	Notifications struct {
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"notifications"`
	// Event carries the host-page configuration injected into the
	// service: competition timing and the dark-hour flag.
	Event struct {
		Start        string `yaml:"start"`
		End          string `yaml:"end"`
		Paused       bool   `yaml:"paused"`
		ScoresHidden bool   `yaml:"scores_hidden"`
	} `yaml:"event"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Mode == "" {
		cfg.Mode = "archive"
	}
	if cfg.Mode != "archive" && cfg.Mode != "live" {
		return cfg, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Timestamp parses an RFC3339 timestamp, returning nil when empty or invalid.
func Timestamp(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	return nil
}
