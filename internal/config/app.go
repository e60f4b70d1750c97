// Package config centralizes the process's loader entrypoints, the way the
// teacher's internal/config package delegates to each source-specific
// loader rather than have cmd/ reach into internal/broker or
// internal/persistence directly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mohsanabbas/firehose/internal/coordinator"
)

// SupportedSchema is the only schema_version this process accepts.
const SupportedSchema = "v1"

// LoggingSpec configures internal/logging.
type LoggingSpec struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// TelemetrySpec configures internal/telemetry's HTTP exposition.
type TelemetrySpec struct {
	Port int `yaml:"port"`
}

// sourceRef points at a sub-config file, resolved relative to the app
// spec's own directory the same way the teacher's pipeline spec resolves
// its kafka config path.
type sourceRef struct {
	Config string `yaml:"config"`
}

// coordinatorSpec mirrors coordinator.Config with human-writable duration
// strings in YAML.
type coordinatorSpec struct {
	MonitorSleep    string `yaml:"monitor_sleep"`
	MaxStopWait     string `yaml:"max_stop_wait"`
	FlushInterval   string `yaml:"flush_interval"`
	MailboxCapacity int    `yaml:"mailbox_capacity"`
}

// AppSpec is the top-level YAML document a firehose process is launched
// with: it names the consumer, the ambient logging/telemetry settings,
// inline coordinator tuning, and references to the broker/persistence
// sub-configs (each of which is loaded and schema-gated independently by
// its own package).
type AppSpec struct {
	SchemaVersion string          `yaml:"schema_version"`
	ConsumerID    string          `yaml:"consumer_id"`
	Logging       LoggingSpec     `yaml:"logging"`
	Telemetry     TelemetrySpec   `yaml:"telemetry"`
	Coordinator   coordinatorSpec `yaml:"coordinator"`
	Broker        sourceRef       `yaml:"broker"`
	Persistence   sourceRef       `yaml:"persistence"`

	// BrokerConfigPath and PersistenceConfigPath are Broker.Config and
	// Persistence.Config resolved to absolute paths relative to path's
	// directory, populated by LoadAppSpec.
	BrokerConfigPath      string `yaml:"-"`
	PersistenceConfigPath string `yaml:"-"`
}

// LoadAppSpec parses the top-level application YAML, validates
// schema_version, and resolves its sub-config references to absolute
// paths, mirroring quanta/internal/config/pipeline.go's
// LoadPipelineSpec.
func LoadAppSpec(path string) (AppSpec, error) {
	var spec AppSpec
	raw, err := os.ReadFile(path)
	if err != nil {
		return spec, err
	}
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return spec, err
	}

	if spec.SchemaVersion == "" {
		spec.SchemaVersion = SupportedSchema
	}
	if spec.SchemaVersion != SupportedSchema {
		return spec, fmt.Errorf("app schema_version %q not supported (want %q)", spec.SchemaVersion, SupportedSchema)
	}

	dir := filepath.Dir(path)
	spec.BrokerConfigPath = resolve(dir, spec.Broker.Config)
	spec.PersistenceConfigPath = resolve(dir, spec.Persistence.Config)

	if spec.ConsumerID == "" {
		spec.ConsumerID = "firehose"
	}
	if spec.Telemetry.Port == 0 {
		spec.Telemetry.Port = 9090
	}

	return spec, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Coordinator converts the app spec's inline coordinator tuning into a
// coordinator.Config, parsing each duration field. A blank field is left
// zero so coordinator.New applies its own default; a malformed one is
// returned as an error.
func (s AppSpec) Coordinator() (coordinator.Config, error) {
	cfg := coordinator.Config{MailboxCapacity: s.Coordinator.MailboxCapacity}

	var err error
	if cfg.MonitorSleep, err = parseDuration(s.Coordinator.MonitorSleep); err != nil {
		return cfg, fmt.Errorf("coordinator.monitor_sleep: %w", err)
	}
	if cfg.MaxStopWait, err = parseDuration(s.Coordinator.MaxStopWait); err != nil {
		return cfg, fmt.Errorf("coordinator.max_stop_wait: %w", err)
	}
	if cfg.FlushInterval, err = parseDuration(s.Coordinator.FlushInterval); err != nil {
		return cfg, fmt.Errorf("coordinator.flush_interval: %w", err)
	}
	return cfg, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
