package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohsanabbas/firehose/internal/clock"
	"github.com/mohsanabbas/firehose/internal/message"
)

// fakeSpout is a hand-rolled VirtualSpout test double.
type fakeSpout struct {
	id string

	mu       sync.Mutex
	messages []*message.Message

	openCalls  int32
	closeCalls int32
	flushCalls int32
	acked      []any
	failed     []any

	stopRequested int32
}

func newFakeSpout(id string, messages ...*message.Message) *fakeSpout {
	return &fakeSpout{id: id, messages: messages}
}

func (f *fakeSpout) ConsumerID() string { return f.id }

func (f *fakeSpout) Open(context.Context) error {
	atomic.AddInt32(&f.openCalls, 1)
	return nil
}

func (f *fakeSpout) NextMessage() (*message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return nil, nil
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeSpout) Ack(id any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return nil
}

func (f *fakeSpout) Fail(id any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeSpout) FlushState() error {
	atomic.AddInt32(&f.flushCalls, 1)
	return nil
}

func (f *fakeSpout) IsStopRequested() bool {
	return atomic.LoadInt32(&f.stopRequested) == 1
}

func (f *fakeSpout) RequestStop() {
	atomic.StoreInt32(&f.stopRequested, 1)
}

func (f *fakeSpout) Close() error {
	atomic.AddInt32(&f.closeCalls, 1)
	return nil
}

func (f *fakeSpout) ackedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.acked)
}

func TestOpenBlocksUntilInitialConsumerIsRunning(t *testing.T) {
	firehose := newFakeSpout("firehose")
	c := New(firehose, nil, Config{MonitorSleep: 5 * time.Millisecond})
	outputQueue := make(chan *message.Message, 8)

	c.Open(context.Background(), outputQueue)
	defer c.Close()

	if atomic.LoadInt32(&firehose.openCalls) != 1 {
		t.Fatalf("expected exactly one Open call, got %d", firehose.openCalls)
	}
	if c.RunningCount() != 1 {
		t.Fatalf("expected 1 running consumer, got %d", c.RunningCount())
	}
}

func TestMessagesFlowToOutputQueue(t *testing.T) {
	msg := &message.Message{ID: message.Identifier{Topic: "t", ConsumerID: "firehose"}}
	firehose := newFakeSpout("firehose", msg)
	c := New(firehose, nil, Config{MonitorSleep: 5 * time.Millisecond})
	outputQueue := make(chan *message.Message, 8)

	c.Open(context.Background(), outputQueue)
	defer c.Close()

	select {
	case got := <-outputQueue:
		if got != msg {
			t.Fatalf("expected the same message pointer, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message on output queue")
	}
}

func TestAckRoutesToOwningConsumer(t *testing.T) {
	firehose := newFakeSpout("firehose")
	c := New(firehose, nil, Config{MonitorSleep: 5 * time.Millisecond})
	outputQueue := make(chan *message.Message, 8)
	c.Open(context.Background(), outputQueue)
	defer c.Close()

	id := message.Identifier{Topic: "t", Partition: 0, Offset: 1, ConsumerID: "firehose"}
	c.Ack(id)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if firehose.ackedCount() == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected ack to reach the owning consumer")
}

func TestAckForUnknownConsumerIsDroppedNotPanicked(t *testing.T) {
	firehose := newFakeSpout("firehose")
	c := New(firehose, nil, Config{MonitorSleep: 5 * time.Millisecond})
	outputQueue := make(chan *message.Message, 8)
	c.Open(context.Background(), outputQueue)
	defer c.Close()

	c.Ack(message.Identifier{ConsumerID: "does-not-exist"})
}

func TestAddSidelineSpoutPickedUpByMonitor(t *testing.T) {
	firehose := newFakeSpout("firehose")
	c := New(firehose, nil, Config{MonitorSleep: 5 * time.Millisecond})
	outputQueue := make(chan *message.Message, 8)
	c.Open(context.Background(), outputQueue)
	defer c.Close()

	sideline := newFakeSpout("sideline-1")
	c.AddSidelineSpout(sideline)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.RunningCount() == 2 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected the dynamically added consumer to start running")
}

func TestFlushFiresOnceFakeClockCrossesInterval(t *testing.T) {
	firehose := newFakeSpout("firehose")
	fake := clock.NewFake(time.Unix(0, 0))
	c := New(firehose, nil, Config{MonitorSleep: 5 * time.Millisecond, FlushInterval: time.Minute}).WithClock(fake)
	outputQueue := make(chan *message.Message, 8)

	c.Open(context.Background(), outputQueue)
	defer c.Close()

	// Give the per-consumer worker a chance to spin through a few
	// iterations before the interval elapses; flushCalls must stay at 0
	// the whole time since the fake clock hasn't moved.
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&firehose.flushCalls); got != 0 {
		t.Fatalf("expected no flush before the interval elapses, got %d", got)
	}

	fake.Advance(time.Minute)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&firehose.flushCalls) >= 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected flushState to fire once the fake clock crossed FlushInterval")
}

func TestCloseStopsAllRunningConsumers(t *testing.T) {
	firehose := newFakeSpout("firehose")
	c := New(firehose, nil, Config{MonitorSleep: 5 * time.Millisecond})
	outputQueue := make(chan *message.Message, 8)
	c.Open(context.Background(), outputQueue)

	c.Close()

	if atomic.LoadInt32(&firehose.closeCalls) != 1 {
		t.Fatalf("expected exactly one Close call, got %d", firehose.closeCalls)
	}
	if c.RunningCount() != 0 {
		t.Fatalf("expected 0 running consumers after close, got %d", c.RunningCount())
	}
}
