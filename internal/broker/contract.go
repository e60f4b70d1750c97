// Package broker defines the Broker Consumer contract the core depends on
// (spec §4.D): a thin, single-owner wrapper over the underlying commit-log
// client.
package broker

import (
	"context"

	"github.com/mohsanabbas/firehose/internal/offsetmap"
)

// Record is one raw, not-yet-deserialized message pulled from the broker.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

func (r Record) TopicPartition() offsetmap.TopicPartition {
	return offsetmap.TopicPartition{Topic: r.Topic, Partition: r.Partition}
}

// Consumer is the contract a Virtual Consumer depends on. Exactly one
// Virtual Consumer worker ever touches a given Consumer (spec §5); it is not
// safe for concurrent use by multiple callers.
type Consumer interface {
	// Connect is idempotent from the contract's perspective, but the
	// Virtual Consumer calls it exactly once.
	Connect(ctx context.Context) error

	// NextRecord is non-blocking: it returns the next buffered record for
	// the subscribed partitions, or ok=false if none is currently
	// available. ok=false is not an error.
	NextRecord() (rec Record, ok bool)

	// CommitOffset marks offset as the next unconsumed position for tp in
	// the durable group state.
	CommitOffset(tp offsetmap.TopicPartition, offset int64) error

	// UnsubscribeTopicPartition removes tp from the active assignment,
	// reporting whether anything changed.
	UnsubscribeTopicPartition(tp offsetmap.TopicPartition) (changed bool, err error)

	// CurrentState snapshots committed positions across assigned
	// partitions.
	CurrentState() offsetmap.OffsetMap

	// Close releases resources. Idempotent.
	Close() error
}
