package persistence

import (
	"errors"
	"testing"

	"github.com/mohsanabbas/firehose/internal/offsetmap"
	"github.com/mohsanabbas/firehose/internal/spouterr"
	"github.com/mohsanabbas/firehose/internal/trigger"
)

func TestInMemoryOperationsFailBeforeOpen(t *testing.T) {
	m := NewInMemory()

	if err := m.PersistConsumerState("c", offsetmap.OffsetMap{}); !errors.Is(err, spouterr.IllegalState) {
		t.Fatalf("expected IllegalState, got %v", err)
	}
	if _, _, err := m.RetrieveConsumerState("c"); !errors.Is(err, spouterr.IllegalState) {
		t.Fatalf("expected IllegalState, got %v", err)
	}
	if err := m.ClearConsumerState("c"); !errors.Is(err, spouterr.IllegalState) {
		t.Fatalf("expected IllegalState, got %v", err)
	}
	if err := m.PersistSidelineRequestState(trigger.Request{}); !errors.Is(err, spouterr.IllegalState) {
		t.Fatalf("expected IllegalState, got %v", err)
	}
	if _, _, err := m.RetrieveSidelineRequest("r"); !errors.Is(err, spouterr.IllegalState) {
		t.Fatalf("expected IllegalState, got %v", err)
	}
	if err := m.ClearSidelineRequest("r"); !errors.Is(err, spouterr.IllegalState) {
		t.Fatalf("expected IllegalState, got %v", err)
	}
}

func TestInMemoryConsumerStateRoundTrip(t *testing.T) {
	m := NewInMemory()
	if err := m.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	tp0 := offsetmap.TopicPartition{Topic: "MyTopic", Partition: 0}
	tp1 := offsetmap.TopicPartition{Topic: "MyTopic", Partition: 1}
	state := offsetmap.NewBuilder().WithPartition(tp0, 0).WithPartition(tp1, 100).Build()

	if err := m.PersistConsumerState("myConsumer", state); err != nil {
		t.Fatalf("persist: %v", err)
	}

	got, ok, err := m.RetrieveConsumerState("myConsumer")
	if err != nil || !ok {
		t.Fatalf("retrieve: ok=%v err=%v", ok, err)
	}
	if !got.Equal(state) {
		t.Fatalf("expected %v, got %v", state, got)
	}

	if err := m.ClearConsumerState("myConsumer"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, err := m.RetrieveConsumerState("myConsumer"); err != nil || ok {
		t.Fatalf("expected no entry after clear, ok=%v err=%v", ok, err)
	}
}

func TestInMemoryConsumerStateUpdateOverwrites(t *testing.T) {
	m := NewInMemory()
	if err := m.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	tp := offsetmap.TopicPartition{Topic: "t", Partition: 0}

	if err := m.PersistConsumerState("c", offsetmap.NewBuilder().WithPartition(tp, 0).Build()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := m.PersistConsumerState("c", offsetmap.NewBuilder().WithPartition(tp, 100).Build()); err != nil {
		t.Fatalf("persist: %v", err)
	}

	got, _, _ := m.RetrieveConsumerState("c")
	off, _ := got.Get(tp)
	if off != 100 {
		t.Fatalf("expected updated offset 100, got %d", off)
	}
}

func TestInMemorySidelineRequestRoundTrip(t *testing.T) {
	m := NewInMemory()
	if err := m.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	starting := offsetmap.NewBuilder().WithPartition(offsetmap.TopicPartition{Topic: "MyTopic1", Partition: 0}, 10).Build()
	req := trigger.Request{
		ID:              "req-1",
		Type:            trigger.Start,
		StartingOffsets: &starting,
	}

	if err := m.PersistSidelineRequestState(req); err != nil {
		t.Fatalf("persist: %v", err)
	}

	got, ok, err := m.RetrieveSidelineRequest("req-1")
	if err != nil || !ok {
		t.Fatalf("retrieve: ok=%v err=%v", ok, err)
	}
	if got.Type != trigger.Start {
		t.Fatalf("unexpected type %v", got.Type)
	}
	off, _ := got.StartingOffsets.Get(offsetmap.TopicPartition{Topic: "MyTopic1", Partition: 0})
	if off != 10 {
		t.Fatalf("expected offset 10, got %d", off)
	}

	if err := m.ClearSidelineRequest("req-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := m.RetrieveSidelineRequest("req-1"); ok {
		t.Fatal("expected request to be cleared")
	}
}

func TestInMemoryCloseThenReopenRequiresGuard(t *testing.T) {
	m := NewInMemory()
	if err := m.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := m.RetrieveConsumerState("c"); !errors.Is(err, spouterr.IllegalState) {
		t.Fatalf("expected IllegalState after close, got %v", err)
	}
}
