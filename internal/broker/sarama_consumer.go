package broker

import (
	"context"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohsanabbas/firehose/internal/logging"
	"github.com/mohsanabbas/firehose/internal/offsetmap"
	"github.com/mohsanabbas/firehose/internal/spouterr"
)

// SaramaConsumer is the Kafka-backed Consumer implementation, grounded in
// the teacher's consumer-group driver: a background goroutine runs the
// sarama claim loop and feeds a bounded buffer that NextRecord drains
// non-blockingly.
type SaramaConsumer struct {
	cfg Config

	client sarama.Client
	group  sarama.ConsumerGroup
	cancel context.CancelFunc

	buf chan Record

	mu        sync.Mutex
	stopped   map[offsetmap.TopicPartition]bool
	committed map[offsetmap.TopicPartition]int64
	session   sarama.ConsumerGroupSession
}

// NewSaramaConsumer constructs a Consumer for cfg. Connect must still be
// called before use.
func NewSaramaConsumer(cfg Config) *SaramaConsumer {
	return &SaramaConsumer{
		cfg:       cfg,
		stopped:   make(map[offsetmap.TopicPartition]bool),
		committed: make(map[offsetmap.TopicPartition]int64),
	}
}

func (c *SaramaConsumer) Connect(ctx context.Context) error {
	ver, err := sarama.ParseKafkaVersion(c.cfg.Version)
	if err != nil {
		return spouterr.WrapBroker("parse kafka version", err)
	}

	sc := sarama.NewConfig()
	sc.Version = ver
	sc.Consumer.Return.Errors = true
	if c.cfg.TLSEn {
		sc.Net.TLS.Enable = true
	}
	if c.cfg.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User = c.cfg.SASLUser
		sc.Net.SASL.Password = c.cfg.SASLPass
	}
	switch c.cfg.StartFrom {
	case "oldest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	client, err := sarama.NewClient(c.cfg.Brokers, sc)
	if err != nil {
		return spouterr.WrapBroker("dial brokers", err)
	}
	group, err := sarama.NewConsumerGroupFromClient(c.cfg.GroupID, client)
	if err != nil {
		_ = client.Close()
		return spouterr.WrapBroker("join consumer group", err)
	}

	c.client = client
	c.group = group
	c.buf = make(chan Record, c.cfg.BackPressure.Capacity)

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.run(runCtx)
	go c.watchErrors(runCtx)

	return nil
}

func (c *SaramaConsumer) run(ctx context.Context) {
	handler := &groupHandler{consumer: c}
	for {
		if err := c.group.Consume(ctx, c.cfg.Topics, handler); err != nil {
			logging.L().Warn("broker: consume group session ended", "error", err)
			// Transient broker faults (leader election, short network blip)
			// surface here as a session ending early; back off before
			// rejoining so a persistent failure doesn't spin the loop hot
			// (spec §4.D: "the Broker Consumer's responsibility to retry
			// transient errors internally").
			select {
			case <-ctx.Done():
				return
			case <-time.After(commitRetryDelay):
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *SaramaConsumer) watchErrors(ctx context.Context) {
	for {
		select {
		case err, ok := <-c.group.Errors():
			if !ok {
				return
			}
			logging.L().Warn("broker: consumer group error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

func (c *SaramaConsumer) NextRecord() (Record, bool) {
	select {
	case rec := <-c.buf:
		return rec, true
	default:
		return Record{}, false
	}
}

func (c *SaramaConsumer) CommitOffset(tp offsetmap.TopicPartition, offset int64) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return spouterr.WrapBroker("commit offset", spouterr.IllegalState)
	}

	// This is the only path that advances the real, broker-side committed
	// offset (spec §4.D/§4.E: ack-driven commit, nothing else). MarkOffset
	// expects the *next* offset to consume, which is exactly what the
	// Virtual Consumer passes us on Ack.
	sess.MarkOffset(tp.Topic, tp.Partition, offset, "")

	c.mu.Lock()
	c.committed[tp] = offset
	c.mu.Unlock()
	return nil
}

func (c *SaramaConsumer) UnsubscribeTopicPartition(tp offsetmap.TopicPartition) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped[tp] {
		return false, nil
	}
	c.stopped[tp] = true
	return true, nil
}

func (c *SaramaConsumer) CurrentState() offsetmap.OffsetMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := offsetmap.NewBuilder()
	for tp, off := range c.committed {
		b.WithPartition(tp, off)
	}
	return b.Build()
}

func (c *SaramaConsumer) Close() error {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	var firstErr error
	if c.group != nil {
		if err := c.group.Close(); err != nil {
			firstErr = err
		}
		c.group = nil
	}
	if c.client != nil {
		if err := c.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.client = nil
	}
	return firstErr
}

func (c *SaramaConsumer) isStopped(tp offsetmap.TopicPartition) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped[tp]
}

// groupHandler adapts sarama's push-based ConsumerGroupHandler into the
// buffered-channel pull model NextRecord exposes.
type groupHandler struct {
	consumer *SaramaConsumer
}

// Setup retains sess so CommitOffset can mark the durable group offset
// the moment the Virtual Consumer acks, rather than ConsumeClaim marking
// it the instant a record is merely read off the wire.
func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.consumer.mu.Lock()
	h.consumer.session = sess
	h.consumer.mu.Unlock()
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	h.consumer.mu.Lock()
	if h.consumer.session == sess {
		h.consumer.session = nil
	}
	h.consumer.mu.Unlock()
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	tp := offsetmap.TopicPartition{Topic: claim.Topic(), Partition: claim.Partition()}

	for msg := range claim.Messages() {
		if h.consumer.isStopped(tp) {
			return nil
		}

		rec := Record{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       msg.Key,
			Value:     msg.Value,
		}

		// No MarkOffset/MarkMessage here: the offset only advances once
		// CommitOffset is called from an Ack (spec §4.E), not as records
		// are merely buffered. A crash before ack must redeliver this
		// record on restart.
		select {
		case h.consumer.buf <- rec:
		case <-sess.Context().Done():
			return sess.Context().Err()
		}
	}
	return nil
}
