package persistence

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mohsanabbas/firehose/internal/spouterr"
)

// Config holds the ZooKeeper-backed Manager's connection settings. Field
// names mirror spec §6's recognized options.
type Config struct {
	ZKServers   []string      `koanf:"zk_servers"`
	ZKRoot      string        `koanf:"zk_root"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
}

// LoadConfig merges YAML (if present) with env-vars (prefix
// FIREHOSE_PERSISTENCE__, delimiter __). ZKRoot is required; its absence is
// an IllegalState the caller discovers at Open, mirroring
// ZookeeperPersistenceManagerTest#testOpenMissingConfigForZkRootNode.
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
		return Config{}, fmt.Errorf("persistence schema_version %q not supported (want v1)", sv)
	}

	_ = k.Load(env.Provider("FIREHOSE_PERSISTENCE__", "__", nil), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.DialTimeout == 0 {
		c.DialTimeout = 6 * time.Second
	}
}

func (c Config) validate() error {
	if c.ZKRoot == "" {
		return spouterr.NewIllegalState("persistence config missing zk_root")
	}
	return nil
}
