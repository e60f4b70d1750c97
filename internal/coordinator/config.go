package coordinator

import "time"

// Config tunes the Coordinator's monitor cadence and shutdown deadline
// (spec §4.G). Field names mirror the Java constants' defaults.
type Config struct {
	// MonitorSleep is how long the monitor worker sleeps between sweeps of
	// pending (default 2s).
	MonitorSleep time.Duration

	// MaxStopWait bounds how long close() waits for running to drain
	// before abandoning the wait (default 10s).
	MaxStopWait time.Duration

	// FlushInterval is how often each per-consumer worker calls
	// flushState() (default 30s).
	FlushInterval time.Duration

	// MailboxCapacity bounds the ack/fail mailbox channel per consumer.
	MailboxCapacity int
}

func (c *Config) applyDefaults() {
	if c.MonitorSleep == 0 {
		c.MonitorSleep = 2 * time.Second
	}
	if c.MaxStopWait == 0 {
		c.MaxStopWait = 10 * time.Second
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 30 * time.Second
	}
	if c.MailboxCapacity == 0 {
		c.MailboxCapacity = 1024
	}
}
