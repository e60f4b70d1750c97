package broker

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// BackPressureConfig bounds how many records the Consumer buffers ahead of
// the Virtual Consumer's poll loop.
type BackPressureConfig struct {
	Capacity int64 `koanf:"capacity"`
}

// Config holds everything a Consumer needs to dial a broker and join a
// consumer group. Field names mirror spec §6's recognized options.
type Config struct {
	Brokers   []string `koanf:"brokers"`
	Topics    []string `koanf:"topics"`
	GroupID   string   `koanf:"group_id"`
	StartFrom string   `koanf:"start_from"` // oldest|newest
	Version   string   `koanf:"version"`
	TLSEn     bool     `koanf:"tls_enabled"`
	SASLUser  string   `koanf:"sasl_user"`
	SASLPass  string   `koanf:"sasl_pass"`

	BackPressure BackPressureConfig `koanf:"backpressure"`
}

// LoadConfig merges YAML (if present) with env-vars (prefix
// FIREHOSE_KAFKA__, delimiter __).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	sv := k.String("schema_version")
	if sv != "" && sv != "v1" {
		return Config{}, fmt.Errorf("kafka schema_version %q not supported (want v1)", sv)
	}

	_ = k.Load(env.Provider("FIREHOSE_KAFKA__", "__", nil), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.BackPressure.Capacity == 0 {
		c.BackPressure.Capacity = 10_000
	}
	if c.StartFrom == "" {
		c.StartFrom = "newest"
	}
	if c.Version == "" {
		c.Version = "2.8.0"
	}
}

// commitRetryDelay bounds how long the Consumer waits before rejoining the
// consumer group after a session ends early, so a persistent broker
// failure backs off instead of busy-looping (spec §4.D: "it is the Broker
// Consumer's responsibility to retry transient errors internally"). Wired
// into SaramaConsumer.run's reconnect loop.
const commitRetryDelay = 500 * time.Millisecond
