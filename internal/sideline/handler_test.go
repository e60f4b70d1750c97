package sideline

import (
	"context"
	"testing"

	"github.com/mohsanabbas/firehose/internal/broker"
	"github.com/mohsanabbas/firehose/internal/coordinator"
	"github.com/mohsanabbas/firehose/internal/offsetmap"
	"github.com/mohsanabbas/firehose/internal/persistence"
	"github.com/mohsanabbas/firehose/internal/spout"
	"github.com/mohsanabbas/firehose/internal/trigger"
)

// fakeBroker is a minimal broker.Consumer double: no records and a fixed
// CurrentState, so the handler's STOP path can be exercised without a live
// connection.
type fakeBroker struct {
	state offsetmap.OffsetMap
}

func (f *fakeBroker) Connect(context.Context) error { return nil }
func (f *fakeBroker) NextRecord() (broker.Record, bool) {
	return broker.Record{}, false
}
func (f *fakeBroker) CommitOffset(offsetmap.TopicPartition, int64) error { return nil }
func (f *fakeBroker) UnsubscribeTopicPartition(offsetmap.TopicPartition) (bool, error) {
	return true, nil
}
func (f *fakeBroker) CurrentState() offsetmap.OffsetMap { return f.state }
func (f *fakeBroker) Close() error                      { return nil }

type echoDeserializer struct{}

func (echoDeserializer) Deserialize(_ string, _ int32, _ int64, key, value []byte) ([]any, bool) {
	return []any{string(key), string(value)}, true
}

func newTestFirehose(t *testing.T, initial offsetmap.OffsetMap) *spout.VirtualConsumer {
	t.Helper()
	vc := spout.New(spout.Config{
		ConsumerID:   "firehose",
		Broker:       &fakeBroker{state: initial},
		Deserializer: echoDeserializer{},
		Persistence:  persistence.NewInMemory(),
	})
	if err := vc.Open(context.Background()); err != nil {
		t.Fatalf("open firehose: %v", err)
	}
	return vc
}

func newOpenedInMemory(t *testing.T) *persistence.InMemory {
	t.Helper()
	p := persistence.NewInMemory()
	if err := p.Open(); err != nil {
		t.Fatalf("open persistence: %v", err)
	}
	return p
}

func TestStartInstallsFilterStepAndPersists(t *testing.T) {
	tp := offsetmap.TopicPartition{Topic: "orders", Partition: 0}
	firehose := newTestFirehose(t, offsetmap.NewBuilder().WithPartition(tp, 42).Build())
	store := newOpenedInMemory(t)
	coord := coordinator.New(firehose, nil, coordinator.Config{})

	h := New(firehose, coord, store, nil, nil)

	id, err := h.Start([]trigger.FilterStepSpec{{Name: "key-equals", Args: map[string]string{"key": "vip"}}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty request id")
	}

	if firehose.FilterChain().Len() != 1 {
		t.Fatalf("expected one installed filter step, got %d", firehose.FilterChain().Len())
	}

	req, found, err := store.RetrieveSidelineRequest(id)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !found {
		t.Fatal("expected the request to be persisted")
	}
	if req.Type != trigger.Start {
		t.Fatalf("expected type START, got %v", req.Type)
	}
	if req.StartingOffsets == nil {
		t.Fatal("expected startingOffsets to be captured")
	}
	got, ok := req.StartingOffsets.Get(tp)
	if !ok || got != 42 {
		t.Fatalf("expected starting offset 42 for %v, got %d (ok=%v)", tp, got, ok)
	}
}

func TestStartWithUnknownFilterKindFails(t *testing.T) {
	firehose := newTestFirehose(t, offsetmap.OffsetMap{})
	store := newOpenedInMemory(t)
	coord := coordinator.New(firehose, nil, coordinator.Config{})
	h := New(firehose, coord, store, nil, nil)

	if _, err := h.Start([]trigger.FilterStepSpec{{Name: "no-such-kind"}}); err == nil {
		t.Fatal("expected an error for an unregistered filter kind")
	}
	if firehose.FilterChain().Len() != 0 {
		t.Fatal("expected no filter step left installed after a failed start")
	}
}

func TestStopWithoutConsumerFactoryFails(t *testing.T) {
	tp := offsetmap.TopicPartition{Topic: "orders", Partition: 0}
	firehose := newTestFirehose(t, offsetmap.NewBuilder().WithPartition(tp, 10).Build())
	store := newOpenedInMemory(t)
	coord := coordinator.New(firehose, nil, coordinator.Config{})
	h := New(firehose, coord, store, nil, nil)

	id, err := h.Start([]trigger.FilterStepSpec{{Name: "key-equals", Args: map[string]string{"key": "vip"}}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := h.Stop(id); err == nil {
		t.Fatal("expected Stop to fail with no consumer factory configured")
	}
}

func TestStopBuildsDrainConsumerAndHandsToCoordinator(t *testing.T) {
	tp := offsetmap.TopicPartition{Topic: "orders", Partition: 0}
	firehose := newTestFirehose(t, offsetmap.NewBuilder().WithPartition(tp, 10).Build())
	store := newOpenedInMemory(t)
	coord := coordinator.New(firehose, nil, coordinator.Config{})

	var factoryCalls int
	var sawStarting, sawEnding offsetmap.OffsetMap
	factory := func(consumerID string, starting, ending offsetmap.OffsetMap) (*spout.VirtualConsumer, error) {
		factoryCalls++
		sawStarting, sawEnding = starting, ending
		return spout.New(spout.Config{
			ConsumerID:   consumerID,
			Broker:       &fakeBroker{state: ending},
			Deserializer: echoDeserializer{},
			Persistence:  persistence.NewInMemory(),
		}), nil
	}

	h := New(firehose, coord, store, factory, nil)

	id, err := h.Start([]trigger.FilterStepSpec{{Name: "key-equals", Args: map[string]string{"key": "vip"}}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := h.Stop(id); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if factoryCalls != 1 {
		t.Fatalf("expected the consumer factory to be called exactly once, got %d", factoryCalls)
	}
	if off, ok := sawStarting.Get(tp); !ok || off != 10 {
		t.Fatalf("expected drain consumer to start at offset 10, got %d (ok=%v)", off, ok)
	}
	if off, ok := sawEnding.Get(tp); !ok || off != 10 {
		t.Fatalf("expected drain consumer ending offset 10, got %d (ok=%v)", off, ok)
	}

	if firehose.FilterChain().Len() != 0 {
		t.Fatal("expected the filter step to be removed from the firehose after stop")
	}

	req, found, err := store.RetrieveSidelineRequest(id)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !found {
		t.Fatal("expected request to remain persisted after stop")
	}
	if req.Type != trigger.Stop {
		t.Fatalf("expected type STOP, got %v", req.Type)
	}
}

func TestStopOnUnknownRequestFails(t *testing.T) {
	firehose := newTestFirehose(t, offsetmap.OffsetMap{})
	store := newOpenedInMemory(t)
	coord := coordinator.New(firehose, nil, coordinator.Config{})
	h := New(firehose, coord, store, nil, nil)

	if err := h.Stop("does-not-exist"); err == nil {
		t.Fatal("expected Stop on an unknown request id to fail")
	}
}

func TestResumeReinstallsOnlyStartedRequests(t *testing.T) {
	store := newOpenedInMemory(t)

	started := trigger.Request{
		ID:          "req-started",
		Type:        trigger.Start,
		FilterSteps: []trigger.FilterStepSpec{{Name: "key-equals", Args: map[string]string{"key": "vip"}}},
	}
	stopped := trigger.Request{
		ID:          "req-stopped",
		Type:        trigger.Stop,
		FilterSteps: []trigger.FilterStepSpec{{Name: "key-equals", Args: map[string]string{"key": "legacy"}}},
	}
	if err := store.PersistSidelineRequestState(started); err != nil {
		t.Fatalf("persist started: %v", err)
	}
	if err := store.PersistSidelineRequestState(stopped); err != nil {
		t.Fatalf("persist stopped: %v", err)
	}

	// A second Handler simulates the fresh-process restart path: no filter
	// steps installed yet, everything rebuilt from persistence.
	fresh := newTestFirehose(t, offsetmap.OffsetMap{})
	freshCoord := coordinator.New(fresh, nil, coordinator.Config{})
	resumer := New(fresh, freshCoord, store, nil, nil)

	if err := resumer.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if fresh.FilterChain().Len() != 1 {
		t.Fatalf("expected exactly the STARTED request's step to be reinstalled, got %d steps", fresh.FilterChain().Len())
	}
}
