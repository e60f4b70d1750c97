package message

import (
	"errors"
	"testing"

	"github.com/mohsanabbas/firehose/internal/spouterr"
)

func TestAsIdentifierValid(t *testing.T) {
	in := Identifier{Topic: "MyTopic", Partition: 33, Offset: 313376, ConsumerID: "RandomConsumer"}
	out, err := AsIdentifier(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != in {
		t.Fatalf("expected %v, got %v", in, out)
	}
}

func TestAsIdentifierInvalid(t *testing.T) {
	_, err := AsIdentifier("not an identifier")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, spouterr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestEquality(t *testing.T) {
	a := Identifier{Topic: "t", Partition: 1, Offset: 2, ConsumerID: "c"}
	b := Identifier{Topic: "t", Partition: 1, Offset: 2, ConsumerID: "c"}
	c := Identifier{Topic: "t", Partition: 1, Offset: 3, ConsumerID: "c"}
	if a != b {
		t.Fatal("expected a == b")
	}
	if a == c {
		t.Fatal("expected a != c")
	}
}
