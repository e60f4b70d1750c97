// Package message defines the Message Identifier and Emitted Message value
// types (spec §3/§4.B) — the external handle the host topology holds onto
// for later ack/fail.
package message

import (
	"fmt"

	"github.com/mohsanabbas/firehose/internal/offsetmap"
	"github.com/mohsanabbas/firehose/internal/spouterr"
)

// Identifier is the triple (topic, partition, offset) plus the owning
// consumer id. Structural equality and hashing are over all four fields,
// which Go gives us for free on a comparable struct.
type Identifier struct {
	Topic      string
	Partition  int32
	Offset     int64
	ConsumerID string
}

// TopicPartition projects the topic/partition pair.
func (id Identifier) TopicPartition() offsetmap.TopicPartition {
	return offsetmap.TopicPartition{Topic: id.Topic, Partition: id.Partition}
}

func (id Identifier) String() string {
	return fmt.Sprintf("%s-%d@%d(%s)", id.Topic, id.Partition, id.Offset, id.ConsumerID)
}

// AsIdentifier asserts that v is an Identifier, failing with InvalidArgument
// otherwise (spec §4.B — a non-Identifier object handed back where an
// Identifier is required).
func AsIdentifier(v any) (Identifier, error) {
	id, ok := v.(Identifier)
	if !ok {
		return Identifier{}, spouterr.NewInvalidArgument(fmt.Sprintf("expected message.Identifier, got %T", v))
	}
	return id, nil
}

// Message pairs an Identifier with the deserialized payload values. The
// payload shape is opaque to this package; it is whatever the Deserializer
// collaborator produced.
type Message struct {
	ID     Identifier
	Values []any
}
