package config

import (
	"github.com/mohsanabbas/firehose/internal/broker"
	"github.com/mohsanabbas/firehose/internal/persistence"
)

// LoadBrokerConfig delegates to the broker package's own loader, the way
// the teacher's LoadKafkaConfig delegates to source/kafka's, centralizing
// loader entrypoints under internal/config for cmd/ to call.
func LoadBrokerConfig(path string) (broker.Config, error) {
	return broker.LoadConfig(path)
}

// LoadPersistenceConfig delegates to the persistence package's own loader.
func LoadPersistenceConfig(path string) (persistence.Config, error) {
	return persistence.LoadConfig(path)
}
