package spout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohsanabbas/firehose/internal/broker"
	"github.com/mohsanabbas/firehose/internal/filter"
	"github.com/mohsanabbas/firehose/internal/logging"
	"github.com/mohsanabbas/firehose/internal/message"
	"github.com/mohsanabbas/firehose/internal/offsetmap"
	"github.com/mohsanabbas/firehose/internal/spouterr"
)

// lifecycle states, spec §3.
const (
	stateCreated int32 = iota
	stateOpen
	stateStopRequested
	stateClosed
)

// Deserializer turns a raw record into tuple values, or reports that the
// record is poison (spec §4.E step 3). This is the pluggable collaborator
// spec.md calls out as out of scope; the spout core only depends on this
// narrow interface.
type Deserializer interface {
	Deserialize(topic string, partition int32, offset int64, key, value []byte) (values []any, ok bool)
}

// PersistenceManager is the narrow view of the Persistence Contract (spec
// §4.F) the Virtual Consumer needs for flushState.
type PersistenceManager interface {
	PersistConsumerState(consumerID string, state offsetmap.OffsetMap) error
}

// Config configures one Virtual Consumer instance.
type Config struct {
	ConsumerID    string
	Broker        broker.Consumer
	Deserializer  Deserializer
	Persistence   PersistenceManager
	EndingOffsets *offsetmap.OffsetMap // nil: unbounded (firehose)
}

// VirtualConsumer is the bounded filtered consumer described in spec §4.E.
type VirtualConsumer struct {
	consumerID    string
	brokerConn    broker.Consumer
	deserializer  Deserializer
	persistence   PersistenceManager
	chain         *filter.Chain
	endingOffsets *offsetmap.OffsetMap

	state int32

	inFlightMu sync.Mutex
	inFlight   map[message.Identifier]time.Time

	unsubscribedMu sync.Mutex
	unsubscribed   map[offsetmap.TopicPartition]bool
}

// New constructs a CREATED Virtual Consumer. Call Open before polling it.
func New(cfg Config) *VirtualConsumer {
	return &VirtualConsumer{
		consumerID:    cfg.ConsumerID,
		brokerConn:    cfg.Broker,
		deserializer:  cfg.Deserializer,
		persistence:   cfg.Persistence,
		chain:         filter.NewChain(),
		endingOffsets: cfg.EndingOffsets,
		inFlight:      make(map[message.Identifier]time.Time),
		unsubscribed:  make(map[offsetmap.TopicPartition]bool),
	}
}

// ConsumerID returns the logical consumer id this instance owns.
func (v *VirtualConsumer) ConsumerID() string { return v.consumerID }

// FilterChain exposes the published "install step" operation for
// collaborators (e.g. the Sideline Handler) that add filter steps while the
// consumer is OPEN (spec §3).
func (v *VirtualConsumer) FilterChain() *filter.Chain { return v.chain }

// CurrentOffsets snapshots the Broker Consumer's committed positions, the
// operation the Sideline Handler uses to capture startingOffsets at START
// and endingOffsets at STOP (spec §4.H).
func (v *VirtualConsumer) CurrentOffsets() offsetmap.OffsetMap {
	return v.brokerConn.CurrentState()
}

// Open transitions CREATED -> OPEN and connects the Broker Consumer exactly
// once. A second call fails with IllegalState.
func (v *VirtualConsumer) Open(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&v.state, stateCreated, stateOpen) {
		return spouterr.NewIllegalState("virtual consumer already opened: " + v.consumerID)
	}
	return v.brokerConn.Connect(ctx)
}

// NextMessage produces zero or one message per call (spec §4.E algorithm).
func (v *VirtualConsumer) NextMessage() (*message.Message, error) {
	state := atomic.LoadInt32(&v.state)
	if state == stateStopRequested {
		// Stopping (e.g. every bounded partition exhausted): nothing more is
		// emitted, but polling is not an error until the consumer is closed.
		return nil, nil
	}
	if state != stateOpen {
		return nil, spouterr.NewIllegalState("nextMessage called while not open: " + v.consumerID)
	}

	rec, ok := v.brokerConn.NextRecord()
	if !ok {
		return nil, nil
	}

	values, ok := v.deserializer.Deserialize(rec.Topic, rec.Partition, rec.Offset, rec.Key, rec.Value)
	if !ok {
		logging.L().Debug("spout: dropping poison record", "consumerId", v.consumerID, "topic", rec.Topic, "partition", rec.Partition, "offset", rec.Offset)
		return nil, nil
	}

	id := message.Identifier{
		Topic:      rec.Topic,
		Partition:  rec.Partition,
		Offset:     rec.Offset,
		ConsumerID: v.consumerID,
	}

	exceeds, err := v.doesMessageExceedEndingOffset(id.TopicPartition(), rec.Offset)
	if err != nil {
		return nil, err
	}
	if exceeds {
		if _, uerr := v.brokerConn.UnsubscribeTopicPartition(id.TopicPartition()); uerr != nil {
			return nil, spouterr.WrapBroker("unsubscribe exhausted partition", uerr)
		}
		v.markUnsubscribed(id.TopicPartition())
		return nil, nil
	}

	if v.chain.Evaluate(filter.Record{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
	}) {
		return nil, nil
	}

	v.inFlightMu.Lock()
	v.inFlight[id] = time.Now()
	v.inFlightMu.Unlock()

	return &message.Message{ID: id, Values: values}, nil
}

// doesMessageExceedEndingOffset implements spec §4.E step 5 / §8 property
// 9: false with no ending bound configured, true at or beyond the declared
// bound, false strictly below it, and IllegalState if the partition is
// missing from a configured ending-offsets map.
func (v *VirtualConsumer) doesMessageExceedEndingOffset(tp offsetmap.TopicPartition, offset int64) (bool, error) {
	if v.endingOffsets == nil {
		return false, nil
	}
	end, known := v.endingOffsets.Get(tp)
	if !known {
		return false, spouterr.NewIllegalState("no ending offset declared for partition " + tp.String())
	}
	return offset >= end, nil
}

// Ack removes id from in-flight and commits its offset. id == nil is a
// silent no-op. A non-Identifier value fails with InvalidArgument.
func (v *VirtualConsumer) Ack(id any) error {
	if id == nil {
		return nil
	}
	ident, err := message.AsIdentifier(id)
	if err != nil {
		return err
	}

	v.removeInFlight(ident)

	if err := v.brokerConn.CommitOffset(ident.TopicPartition(), ident.Offset); err != nil {
		return spouterr.WrapBroker("commit offset", err)
	}
	return nil
}

// Fail removes id from in-flight so a subsequent re-poll (after the Broker
// Consumer collaborator redelivers, e.g. post-rebalance) is not rejected as
// a duplicate. id == nil is a silent no-op; a non-Identifier value fails
// with InvalidArgument.
func (v *VirtualConsumer) Fail(id any) error {
	if id == nil {
		return nil
	}
	ident, err := message.AsIdentifier(id)
	if err != nil {
		return err
	}
	v.removeInFlight(ident)
	return nil
}

func (v *VirtualConsumer) removeInFlight(id message.Identifier) {
	v.inFlightMu.Lock()
	delete(v.inFlight, id)
	v.inFlightMu.Unlock()
}

// InFlightCount reports the number of unacked ids currently tracked.
func (v *VirtualConsumer) InFlightCount() int {
	v.inFlightMu.Lock()
	defer v.inFlightMu.Unlock()
	return len(v.inFlight)
}

// FlushState emits the current Offset Map to the Persistence collaborator.
func (v *VirtualConsumer) FlushState() error {
	snapshot := v.brokerConn.CurrentState()
	if err := v.persistence.PersistConsumerState(v.consumerID, snapshot); err != nil {
		return spouterr.WrapPersistence("flush consumer state", err)
	}
	return nil
}

func (v *VirtualConsumer) markUnsubscribed(tp offsetmap.TopicPartition) {
	v.unsubscribedMu.Lock()
	v.unsubscribed[tp] = true
	allDone := v.endingOffsets != nil
	if allDone {
		for _, e := range v.endingOffsets.Entries() {
			if !v.unsubscribed[e.TopicPartition] {
				allDone = false
				break
			}
		}
	}
	v.unsubscribedMu.Unlock()

	if allDone {
		atomic.CompareAndSwapInt32(&v.state, stateOpen, stateStopRequested)
	}
}

// IsFinished reports whether the consumer has reached STOP_REQUESTED or
// later: either an ending bound was declared and every bounded partition
// has been unsubscribed, or RequestStop was called.
func (v *VirtualConsumer) IsFinished() bool {
	return atomic.LoadInt32(&v.state) >= stateStopRequested
}

// IsStopRequested is the predicate the Coordinator's per-consumer loop polls
// each iteration (spec §4.G).
func (v *VirtualConsumer) IsStopRequested() bool {
	return atomic.LoadInt32(&v.state) >= stateStopRequested
}

// RequestStop transitions to STOP_REQUESTED. Idempotent.
func (v *VirtualConsumer) RequestStop() {
	atomic.CompareAndSwapInt32(&v.state, stateOpen, stateStopRequested)
}

// Close transitions to CLOSED and releases the Broker Consumer. Idempotent.
func (v *VirtualConsumer) Close() error {
	if !atomic.CompareAndSwapInt32(&v.state, stateStopRequested, stateClosed) {
		if !atomic.CompareAndSwapInt32(&v.state, stateOpen, stateClosed) {
			return nil // already closed
		}
	}
	return v.brokerConn.Close()
}
