// Package filter implements the Filter Chain: an ordered, keyed collection
// of sideline predicates evaluated against each raw record (spec §3/§4.C).
package filter

import "sync"

// Record is the raw (pre-deserialize) shape a predicate evaluates.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// Predicate returns true when the record should be dropped.
type Predicate func(Record) bool

// SidelineID keys one filter step. It is opaque to this package.
type SidelineID string

// step couples a predicate with the order it was installed in, since map
// iteration order in Go is randomized and the chain needs a deterministic
// evaluation order.
type step struct {
	id   SidelineID
	pred Predicate
}

// Chain is an ordered set of (SidelineID -> Predicate) steps. The zero value
// is ready to use. Mutation is expected only from the owning Virtual
// Consumer's worker (spec §5); Install/Remove/Evaluate are still guarded by
// a mutex so that collaborators adding steps through the published "install
// step" operation (spec §5, Sideline Handler) don't race the worker.
type Chain struct {
	mu    sync.RWMutex
	steps []step
	index map[SidelineID]int
}

// NewChain returns an empty Chain.
func NewChain() *Chain {
	return &Chain{index: make(map[SidelineID]int)}
}

// Install adds a step under id, replacing any existing predicate for id in
// place (preserving its original position in iteration order).
func (c *Chain) Install(id SidelineID, pred Predicate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil {
		c.index = make(map[SidelineID]int)
	}
	if i, ok := c.index[id]; ok {
		c.steps[i].pred = pred
		return
	}
	c.index[id] = len(c.steps)
	c.steps = append(c.steps, step{id: id, pred: pred})
}

// Remove deletes the step for id, if present.
func (c *Chain) Remove(id SidelineID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return
	}
	c.steps = append(c.steps[:i], c.steps[i+1:]...)
	delete(c.index, id)
	for id, idx := range c.index {
		if idx > i {
			c.index[id] = idx - 1
		}
	}
}

// Evaluate runs the chain against rec in install order, short-circuiting on
// the first predicate that returns true (drop). With no steps installed, no
// message is ever dropped.
func (c *Chain) Evaluate(rec Record) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.steps {
		if s.pred(rec) {
			return true
		}
	}
	return false
}

// Len returns the number of installed steps.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.steps)
}
