// Package coordinator implements the Coordinator (spec §4.G): supervises
// many Virtual Consumers, routing host ack/fail calls to the right one and
// funneling every consumer's emitted messages onto one shared output queue.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/mohsanabbas/firehose/internal/clock"
	"github.com/mohsanabbas/firehose/internal/logging"
	"github.com/mohsanabbas/firehose/internal/message"
	"github.com/mohsanabbas/firehose/internal/telemetry"
)

// VirtualSpout is the narrow view of a Virtual Consumer the Coordinator
// depends on, mirroring the original's DelegateSidelineSpout interface so
// tests can supply a fake instead of a real spout.VirtualConsumer.
type VirtualSpout interface {
	ConsumerID() string
	Open(ctx context.Context) error
	NextMessage() (*message.Message, error)
	Ack(id any) error
	Fail(id any) error
	FlushState() error
	IsStopRequested() bool
	RequestStop()
	Close() error
}

// Coordinator supervises a pending queue of not-yet-started Virtual
// Consumers, a map of running ones, and per-consumer ack/fail mailboxes.
type Coordinator struct {
	cfg     Config
	clock   clock.Clock
	metrics *telemetry.Recorder

	pendingMu sync.Mutex
	pending   []VirtualSpout

	runningMu sync.Mutex
	running   map[string]VirtualSpout
	ackBox    map[string]chan any
	failBox   map[string]chan any

	runningFlagMu sync.Mutex
	runningFlag   bool

	monitorDone chan struct{}
	workers     sync.WaitGroup
}

// New constructs a Coordinator seeded with the firehose Virtual Consumer,
// which is enqueued onto pending immediately (spec §4.G "Construction").
func New(firehose VirtualSpout, metrics *telemetry.Recorder, cfg Config) *Coordinator {
	cfg.applyDefaults()
	c := &Coordinator{
		cfg:     cfg,
		clock:   clock.Real{},
		metrics: metrics,
		running: make(map[string]VirtualSpout),
		ackBox:  make(map[string]chan any),
		failBox: make(map[string]chan any),
	}
	c.AddSidelineSpout(firehose)
	return c
}

// WithClock overrides the Coordinator's time source, for tests that need
// to control flush cadence deterministically.
func (c *Coordinator) WithClock(clk clock.Clock) *Coordinator {
	c.clock = clk
	return c
}

// AddSidelineSpout appends consumer to pending; the next monitor sweep
// picks it up (spec §4.G "Dynamic addition").
func (c *Coordinator) AddSidelineSpout(consumer VirtualSpout) {
	c.pendingMu.Lock()
	c.pending = append(c.pending, consumer)
	c.pendingMu.Unlock()
}

// Open starts the monitor worker and blocks until every Virtual Consumer
// that was pending at call time has completed its own open() (spec §4.G
// "open(outputQueue) protocol").
func (c *Coordinator) Open(ctx context.Context, outputQueue chan<- *message.Message) {
	c.runningFlagMu.Lock()
	c.runningFlag = true
	c.runningFlagMu.Unlock()

	c.pendingMu.Lock()
	initial := len(c.pending)
	c.pendingMu.Unlock()

	var startup sync.WaitGroup
	startup.Add(initial)

	c.monitorDone = make(chan struct{})
	go c.monitor(ctx, outputQueue, &startup, initial)

	startup.Wait()
}

func (c *Coordinator) monitor(ctx context.Context, outputQueue chan<- *message.Message, startup *sync.WaitGroup, initial int) {
	defer close(c.monitorDone)

	for c.isRunning() {
		for {
			consumer, ok := c.popPending()
			if !ok {
				break
			}
			// Only the consumers Open counted into the startup latch count it
			// down; consumers added later start without it.
			var latch *sync.WaitGroup
			if initial > 0 {
				latch = startup
				initial--
			}
			c.workers.Add(1)
			go c.openSpout(ctx, consumer, outputQueue, latch)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.MonitorSleep):
		}
	}
}

func (c *Coordinator) popPending() (VirtualSpout, bool) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if len(c.pending) == 0 {
		return nil, false
	}
	consumer := c.pending[0]
	c.pending = c.pending[1:]
	return consumer, true
}

// openSpout runs one Virtual Consumer's worker loop (spec §4.G "openSpout
// per-consumer loop").
func (c *Coordinator) openSpout(ctx context.Context, consumer VirtualSpout, outputQueue chan<- *message.Message, startup *sync.WaitGroup) {
	defer c.workers.Done()

	id := consumer.ConsumerID()

	if err := consumer.Open(ctx); err != nil {
		logging.L().Error("coordinator: failed to open virtual consumer", "consumerId", id, "err", err)
		if startup != nil {
			startup.Done()
		}
		return
	}

	ack := make(chan any, c.cfg.MailboxCapacity)
	fail := make(chan any, c.cfg.MailboxCapacity)
	c.runningMu.Lock()
	c.running[id] = consumer
	c.ackBox[id] = ack
	c.failBox[id] = fail
	runningCount := len(c.running)
	c.runningMu.Unlock()
	if c.metrics != nil {
		c.metrics.SetRunningConsumers(runningCount)
	}

	if startup != nil {
		startup.Done()
	}

	lastFlush := c.clock.Now()

	for !consumer.IsStopRequested() {
		msg, err := consumer.NextMessage()
		if err != nil {
			logging.L().Error("coordinator: nextMessage failed", "consumerId", id, "err", err)
		} else if msg != nil {
			outputQueue <- msg
			if c.metrics != nil {
				c.metrics.MessageEmitted()
			}
		}

		drainMailbox(ack, consumer.Ack, id, "ack")
		drainMailbox(fail, consumer.Fail, id, "fail")

		if c.clock.Now().Sub(lastFlush) >= c.cfg.FlushInterval {
			if err := consumer.FlushState(); err != nil {
				logging.L().Error("coordinator: flushState failed", "consumerId", id, "err", err)
			} else if c.metrics != nil {
				c.metrics.StateFlushed()
			}
			lastFlush = c.clock.Now()
		}
	}

	if err := consumer.Close(); err != nil {
		logging.L().Error("coordinator: close failed", "consumerId", id, "err", err)
	}

	c.runningMu.Lock()
	delete(c.running, id)
	delete(c.ackBox, id)
	delete(c.failBox, id)
	runningCount = len(c.running)
	c.runningMu.Unlock()
	if c.metrics != nil {
		c.metrics.SetRunningConsumers(runningCount)
	}
}

func drainMailbox(box chan any, apply func(any) error, consumerID, kind string) {
	for {
		select {
		case id := <-box:
			if err := apply(id); err != nil {
				logging.L().Error("coordinator: "+kind+" failed", "consumerId", consumerID, "err", err)
			}
		default:
			return
		}
	}
}

// Ack forwards id to the owning consumer's ack mailbox (spec §4.G). If the
// consumer has already been torn down, the id is logged and dropped.
func (c *Coordinator) Ack(id message.Identifier) {
	c.forward(c.ackBox, id, "ack")
}

// Fail forwards id to the owning consumer's fail mailbox.
func (c *Coordinator) Fail(id message.Identifier) {
	c.forward(c.failBox, id, "fail")
}

func (c *Coordinator) forward(boxes map[string]chan any, id message.Identifier, kind string) {
	c.runningMu.Lock()
	box, ok := boxes[id.ConsumerID]
	c.runningMu.Unlock()
	if !ok {
		logging.L().Warn("coordinator: "+kind+" for unknown consumer", "consumerId", id.ConsumerID)
		return
	}
	box <- id
}

// RunningCount reports how many Virtual Consumers are currently running
// (the Go analogue of the original's package-visible getTotalSpouts, used
// here for tests and for an external gauge).
func (c *Coordinator) RunningCount() int {
	c.runningMu.Lock()
	defer c.runningMu.Unlock()
	return len(c.running)
}

func (c *Coordinator) isRunning() bool {
	c.runningFlagMu.Lock()
	defer c.runningFlagMu.Unlock()
	return c.runningFlag
}

// Close requests every running consumer to stop, waits up to
// cfg.MaxStopWait for them to drain, then signals the monitor worker to
// exit (spec §4.G "close() protocol").
func (c *Coordinator) Close() {
	c.runningMu.Lock()
	for _, consumer := range c.running {
		consumer.RequestStop()
	}
	c.runningMu.Unlock()

	drained := make(chan struct{})
	go func() {
		c.workers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(c.cfg.MaxStopWait):
		logging.L().Warn("coordinator: shutdown deadline elapsed, abandoning wait for workers to drain")
	}

	c.runningFlagMu.Lock()
	c.runningFlag = false
	c.runningFlagMu.Unlock()
}
