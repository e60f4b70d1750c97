// Package sideline implements the Sideline Handler (spec §4.H): translates
// START/RESUME/STOP triggers into Virtual Consumer lifecycle events on the
// Coordinator.
package sideline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mohsanabbas/firehose/internal/coordinator"
	"github.com/mohsanabbas/firehose/internal/filter"
	"github.com/mohsanabbas/firehose/internal/logging"
	"github.com/mohsanabbas/firehose/internal/offsetmap"
	"github.com/mohsanabbas/firehose/internal/persistence"
	"github.com/mohsanabbas/firehose/internal/spout"
	"github.com/mohsanabbas/firehose/internal/telemetry"
	"github.com/mohsanabbas/firehose/internal/trigger"
)

// ConsumerFactory builds a new bounded Virtual Consumer for draining a
// sideline's diverted records, parameterized by the offsets the Handler
// captured at START/STOP. Broker-specific mechanics (how a fresh consumer
// group seeks to startingOffsets) are outside this package's concern, the
// same way spec §1 treats PersistenceManager's wire layout as an external
// collaborator's business.
type ConsumerFactory func(consumerID string, startingOffsets, endingOffsets offsetmap.OffsetMap) (*spout.VirtualConsumer, error)

// Handler coordinates sideline triggers against one firehose Virtual
// Consumer, the shared Coordinator, and the Persistence Contract.
type Handler struct {
	firehose    *spout.VirtualConsumer
	coordinator *coordinator.Coordinator
	persistence persistence.Manager
	newConsumer ConsumerFactory
	metrics     *telemetry.Recorder
}

// New constructs a Handler. newConsumer is required for Stop to be able to
// spin up a drain consumer; it may be nil if the caller never issues STOP
// triggers (e.g. a read-only firehose).
func New(firehose *spout.VirtualConsumer, coord *coordinator.Coordinator, persist persistence.Manager, newConsumer ConsumerFactory, metrics *telemetry.Recorder) *Handler {
	return &Handler{
		firehose:    firehose,
		coordinator: coord,
		persistence: persist,
		newConsumer: newConsumer,
		metrics:     metrics,
	}
}

// Start installs steps into the firehose's Filter Chain under a freshly
// generated request id, snapshots its current Offset Map as
// startingOffsets, and persists the request (spec §4.H START).
func (h *Handler) Start(steps []trigger.FilterStepSpec) (trigger.ID, error) {
	id := trigger.ID(uuid.NewString())

	matcher, err := buildMatcher(steps)
	if err != nil {
		return "", fmt.Errorf("sideline: start %s: %w", id, err)
	}

	h.firehose.FilterChain().Install(filter.SidelineID(id), dropPredicate(matcher))

	starting := h.firehose.CurrentOffsets()
	req := trigger.Request{
		ID:              id,
		Type:            trigger.Start,
		FilterSteps:     steps,
		StartingOffsets: &starting,
	}
	if err := h.persistence.PersistSidelineRequestState(req); err != nil {
		h.firehose.FilterChain().Remove(filter.SidelineID(id))
		return "", err
	}

	if h.metrics != nil {
		h.metrics.SidelineStarted(string(id))
	}
	logging.L().Info("sideline: started", "requestId", id)
	return id, nil
}

// Stop snapshots the firehose's current Offset Map as endingOffsets,
// persists the updated request, removes the steps from the firehose, and
// hands a new draining Virtual Consumer to the Coordinator (spec §4.H
// STOP).
func (h *Handler) Stop(id trigger.ID) error {
	req, found, err := h.persistence.RetrieveSidelineRequest(id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("sideline: stop %s: no such request", id)
	}
	if req.StartingOffsets == nil {
		return fmt.Errorf("sideline: stop %s: request has no startingOffsets", id)
	}

	ending := h.firehose.CurrentOffsets()
	req.Type = trigger.Stop
	req.EndingOffsets = &ending
	if err := h.persistence.PersistSidelineRequestState(req); err != nil {
		return err
	}

	h.firehose.FilterChain().Remove(filter.SidelineID(id))

	if h.newConsumer == nil {
		return fmt.Errorf("sideline: stop %s: no consumer factory configured to drain", id)
	}

	matcher, err := buildMatcher(req.FilterSteps)
	if err != nil {
		return fmt.Errorf("sideline: stop %s: %w", id, err)
	}

	drain, err := h.newConsumer(string(id), *req.StartingOffsets, ending)
	if err != nil {
		return fmt.Errorf("sideline: stop %s: build drain consumer: %w", id, err)
	}
	drain.FilterChain().Install(filter.SidelineID(id), keepOnlyPredicate(matcher))
	h.coordinator.AddSidelineSpout(drain)

	if h.metrics != nil {
		h.metrics.SidelineStopped(string(id))
	}
	logging.L().Info("sideline: stopped", "requestId", id)
	return nil
}

// Resume re-installs filter steps for every persisted request still in the
// STARTED state (type START, never followed by a STOP), for process
// restart (spec §4.H RESUME).
func (h *Handler) Resume() error {
	ids, err := h.persistence.ListSidelineRequestIDs()
	if err != nil {
		return err
	}

	for _, id := range ids {
		req, found, err := h.persistence.RetrieveSidelineRequest(id)
		if err != nil {
			return err
		}
		if !found || req.Type != trigger.Start {
			continue
		}

		matcher, err := buildMatcher(req.FilterSteps)
		if err != nil {
			logging.L().Error("sideline: resume: failed to rebuild filter", "requestId", id, "err", err)
			continue
		}
		h.firehose.FilterChain().Install(filter.SidelineID(id), dropPredicate(matcher))
		logging.L().Info("sideline: resumed", "requestId", id)
	}
	return nil
}

// buildMatcher ORs together every step's MatchFunc: a record belongs to
// the sideline if it matches any configured step.
func buildMatcher(steps []trigger.FilterStepSpec) (MatchFunc, error) {
	matchers := make([]MatchFunc, 0, len(steps))
	for _, step := range steps {
		m, err := build(step)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	return func(rec filter.Record) bool {
		for _, m := range matchers {
			if m(rec) {
				return true
			}
		}
		return false
	}, nil
}

// dropPredicate is installed on the firehose: drop (divert) anything that
// belongs to the sideline so it is not double-processed.
func dropPredicate(match MatchFunc) filter.Predicate {
	return func(rec filter.Record) bool { return match(rec) }
}

// keepOnlyPredicate is installed on the drain consumer: drop anything that
// is NOT part of the sideline, so only the diverted subset gets replayed.
func keepOnlyPredicate(match MatchFunc) filter.Predicate {
	return func(rec filter.Record) bool { return !match(rec) }
}
