package persistence

import (
	"sync"

	"github.com/mohsanabbas/firehose/internal/offsetmap"
	"github.com/mohsanabbas/firehose/internal/spouterr"
	"github.com/mohsanabbas/firehose/internal/trigger"
)

// InMemory is a non-durable Manager for tests and local development.
type InMemory struct {
	mu       sync.Mutex
	opened   bool
	consumer map[string]offsetmap.OffsetMap
	requests map[trigger.ID]trigger.Request
}

// NewInMemory returns an unopened in-memory Manager.
func NewInMemory() *InMemory {
	return &InMemory{
		consumer: make(map[string]offsetmap.OffsetMap),
		requests: make(map[trigger.ID]trigger.Request),
	}
}

func (m *InMemory) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = true
	return nil
}

func (m *InMemory) guard() error {
	if !m.opened {
		return spouterr.NewIllegalState("persistence manager used before open")
	}
	return nil
}

func (m *InMemory) PersistConsumerState(consumerID string, state offsetmap.OffsetMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return err
	}
	m.consumer[consumerID] = state
	return nil
}

func (m *InMemory) RetrieveConsumerState(consumerID string) (offsetmap.OffsetMap, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return offsetmap.OffsetMap{}, false, err
	}
	state, ok := m.consumer[consumerID]
	return state, ok, nil
}

func (m *InMemory) ClearConsumerState(consumerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return err
	}
	delete(m.consumer, consumerID)
	return nil
}

func (m *InMemory) PersistSidelineRequestState(req trigger.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return err
	}
	m.requests[req.ID] = req
	return nil
}

func (m *InMemory) RetrieveSidelineRequest(id trigger.ID) (trigger.Request, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return trigger.Request{}, false, err
	}
	req, ok := m.requests[id]
	return req, ok, nil
}

func (m *InMemory) ClearSidelineRequest(id trigger.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return err
	}
	delete(m.requests, id)
	return nil
}

func (m *InMemory) ListSidelineRequestIDs() ([]trigger.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return nil, err
	}
	ids := make([]trigger.ID, 0, len(m.requests))
	for id := range m.requests {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *InMemory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	return nil
}
