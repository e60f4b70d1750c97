package filter

import "testing"

func TestEvaluateNoSteps(t *testing.T) {
	c := NewChain()
	if c.Evaluate(Record{Topic: "t"}) {
		t.Fatal("expected no drop with zero steps")
	}
}

func TestEvaluateShortCircuitOnFirstTrue(t *testing.T) {
	c := NewChain()
	var secondCalled bool
	c.Install("a", func(Record) bool { return true })
	c.Install("b", func(Record) bool { secondCalled = true; return false })

	if !c.Evaluate(Record{Topic: "t"}) {
		t.Fatal("expected drop")
	}
	if secondCalled {
		t.Fatal("expected short-circuit before second predicate")
	}
}

func TestInstallReplacesExisting(t *testing.T) {
	c := NewChain()
	c.Install("a", func(Record) bool { return true })
	c.Install("a", func(Record) bool { return false })

	if c.Len() != 1 {
		t.Fatalf("expected 1 step, got %d", c.Len())
	}
	if c.Evaluate(Record{}) {
		t.Fatal("expected replaced predicate to win")
	}
}

func TestRemove(t *testing.T) {
	c := NewChain()
	c.Install("a", func(Record) bool { return true })
	c.Install("b", func(Record) bool { return true })
	c.Remove("a")

	if c.Len() != 1 {
		t.Fatalf("expected 1 step after remove, got %d", c.Len())
	}
	if !c.Evaluate(Record{}) {
		t.Fatal("expected remaining step b to still drop")
	}
}

func TestAllStepsFalseNoDrop(t *testing.T) {
	c := NewChain()
	c.Install("a", func(Record) bool { return false })
	c.Install("b", func(Record) bool { return false })
	if c.Evaluate(Record{}) {
		t.Fatal("expected no drop when all steps return false")
	}
}
