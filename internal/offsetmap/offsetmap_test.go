package offsetmap

import "testing"

func TestBuilderBuildImmutable(t *testing.T) {
	b := NewBuilder()
	tp := TopicPartition{Topic: "MyTopic", Partition: 3}
	b.WithPartition(tp, 100)
	m1 := b.Build()

	b.WithPartition(tp, 200)
	m2 := b.Build()

	off1, ok := m1.Get(tp)
	if !ok || off1 != 100 {
		t.Fatalf("m1 should be frozen at 100, got %d, ok=%v", off1, ok)
	}
	off2, ok := m2.Get(tp)
	if !ok || off2 != 200 {
		t.Fatalf("m2 should reflect 200, got %d, ok=%v", off2, ok)
	}
}

func TestGetHasSize(t *testing.T) {
	tp1 := TopicPartition{Topic: "t", Partition: 0}
	tp2 := TopicPartition{Topic: "t", Partition: 1}
	m := NewBuilder().WithPartition(tp1, 10).Build()

	if !m.Has(tp1) {
		t.Fatal("expected tp1 present")
	}
	if m.Has(tp2) {
		t.Fatal("expected tp2 absent")
	}
	if m.Size() != 1 {
		t.Fatalf("expected size 1, got %d", m.Size())
	}
	if _, ok := m.Get(tp2); ok {
		t.Fatal("expected absent offset for tp2")
	}
}

func TestEntriesDeterministicOrder(t *testing.T) {
	m := NewBuilder().
		WithPartition(TopicPartition{Topic: "b", Partition: 1}, 1).
		WithPartition(TopicPartition{Topic: "a", Partition: 2}, 2).
		WithPartition(TopicPartition{Topic: "a", Partition: 1}, 3).
		Build()

	entries := m.Entries()
	want := []TopicPartition{
		{Topic: "a", Partition: 1},
		{Topic: "a", Partition: 2},
		{Topic: "b", Partition: 1},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.TopicPartition != want[i] {
			t.Fatalf("entry %d: expected %v, got %v", i, want[i], e.TopicPartition)
		}
	}
}

func TestEqual(t *testing.T) {
	tp := TopicPartition{Topic: "t", Partition: 0}
	m1 := NewBuilder().WithPartition(tp, 5).Build()
	m2 := NewBuilder().WithPartition(tp, 5).Build()
	m3 := NewBuilder().WithPartition(tp, 6).Build()

	if !m1.Equal(m2) {
		t.Fatal("expected m1 == m2")
	}
	if m1.Equal(m3) {
		t.Fatal("expected m1 != m3")
	}
}

func TestToJSON(t *testing.T) {
	m := NewBuilder().WithPartition(TopicPartition{Topic: "MyTopic", Partition: 4}, 4444).Build()
	j := m.ToJSON()
	off, ok := j["MyTopic-4"]
	if !ok || off != 4444 {
		t.Fatalf("expected MyTopic-4 -> 4444, got %v ok=%v", off, ok)
	}
}
