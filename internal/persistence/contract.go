// Package persistence implements the Persistence Contract (spec §4.F): a
// durable store for Offset Maps keyed by consumer id and for sideline
// request records keyed by request id.
package persistence

import (
	"github.com/mohsanabbas/firehose/internal/offsetmap"
	"github.com/mohsanabbas/firehose/internal/trigger"
)

// Manager is the Persistence Contract. Every operation fails with
// spouterr.IllegalState if called before Open.
type Manager interface {
	Open() error

	PersistConsumerState(consumerID string, state offsetmap.OffsetMap) error
	RetrieveConsumerState(consumerID string) (offsetmap.OffsetMap, bool, error)
	ClearConsumerState(consumerID string) error

	PersistSidelineRequestState(req trigger.Request) error
	RetrieveSidelineRequest(id trigger.ID) (trigger.Request, bool, error)
	ClearSidelineRequest(id trigger.ID) error

	// ListSidelineRequestIDs enumerates every persisted request id, for the
	// Sideline Handler's RESUME pass (spec §4.H "re-install steps for every
	// persisted request whose state is STARTED").
	ListSidelineRequestIDs() ([]trigger.ID, error)

	// Close releases the underlying connection. Idempotent.
	Close() error
}
