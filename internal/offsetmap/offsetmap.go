// Package offsetmap implements the immutable per-(topic,partition)->offset
// snapshot described in spec §3/§4.A.
package offsetmap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TopicPartition identifies one partition of one topic.
type TopicPartition struct {
	Topic     string
	Partition int32
}

func (tp TopicPartition) String() string {
	return fmt.Sprintf("%s-%d", tp.Topic, tp.Partition)
}

// ParseTopicPartition reverses String(): "{topic}-{partition}". Topic names
// may themselves contain hyphens, so the partition is split off the last
// one.
func ParseTopicPartition(s string) (TopicPartition, error) {
	i := strings.LastIndex(s, "-")
	if i < 0 {
		return TopicPartition{}, fmt.Errorf("offsetmap: malformed topic-partition key %q", s)
	}
	partition, err := strconv.ParseInt(s[i+1:], 10, 32)
	if err != nil {
		return TopicPartition{}, fmt.Errorf("offsetmap: malformed topic-partition key %q: %w", s, err)
	}
	return TopicPartition{Topic: s[:i], Partition: int32(partition)}, nil
}

// FromJSON rebuilds an OffsetMap from the wire form ToJSON produces.
func FromJSON(m map[string]int64) (OffsetMap, error) {
	b := NewBuilder()
	for k, off := range m {
		tp, err := ParseTopicPartition(k)
		if err != nil {
			return OffsetMap{}, err
		}
		b.WithPartition(tp, off)
	}
	return b.Build(), nil
}

// OffsetMap is an immutable snapshot of committed offsets, one per
// TopicPartition. Build one with Builder; the zero value is an empty map.
type OffsetMap struct {
	offsets map[TopicPartition]int64
}

// Builder accumulates (topic, partition, offset) entries before Build
// freezes them into an OffsetMap.
type Builder struct {
	offsets map[TopicPartition]int64
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{offsets: make(map[TopicPartition]int64)}
}

// WithPartition records offset for tp, overwriting any prior value, and
// returns the builder for chaining.
func (b *Builder) WithPartition(tp TopicPartition, offset int64) *Builder {
	b.offsets[tp] = offset
	return b
}

// Build freezes the accumulated entries into an OffsetMap. The builder
// remains usable afterward; subsequent mutation does not affect maps
// already built.
func (b *Builder) Build() OffsetMap {
	frozen := make(map[TopicPartition]int64, len(b.offsets))
	for tp, off := range b.offsets {
		frozen[tp] = off
	}
	return OffsetMap{offsets: frozen}
}

// Get returns the offset for tp and whether it was present.
func (m OffsetMap) Get(tp TopicPartition) (int64, bool) {
	off, ok := m.offsets[tp]
	return off, ok
}

// Has reports whether tp has a recorded offset.
func (m OffsetMap) Has(tp TopicPartition) bool {
	_, ok := m.offsets[tp]
	return ok
}

// Size returns the number of partitions in the map.
func (m OffsetMap) Size() int {
	return len(m.offsets)
}

// Entries returns all (TopicPartition, offset) pairs in deterministic
// (topic, partition) order, so callers that serialize this map produce
// stable output.
func (m OffsetMap) Entries() []Entry {
	out := make([]Entry, 0, len(m.offsets))
	for tp, off := range m.offsets {
		out = append(out, Entry{TopicPartition: tp, Offset: off})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Topic != out[j].Topic {
			return out[i].Topic < out[j].Topic
		}
		return out[i].Partition < out[j].Partition
	})
	return out
}

// Entry pairs a TopicPartition with its offset.
type Entry struct {
	TopicPartition
	Offset int64
}

// Equal reports value-equality: same set of partitions with the same
// offsets.
func (m OffsetMap) Equal(other OffsetMap) bool {
	if len(m.offsets) != len(other.offsets) {
		return false
	}
	for tp, off := range m.offsets {
		otherOff, ok := other.offsets[tp]
		if !ok || otherOff != off {
			return false
		}
	}
	return true
}

// ToJSON renders the map as the wire form consumed by the persistence layer:
// a JSON object whose keys are "{topic}-{partition}" and whose values are
// the offsets (spec §4.A/§6).
func (m OffsetMap) ToJSON() map[string]int64 {
	out := make(map[string]int64, len(m.offsets))
	for tp, off := range m.offsets {
		out[tp.String()] = off
	}
	return out
}
