// Package spout implements the Virtual Consumer (spec §4.E): a bounded,
// filtered, at-least-once consumer instance that owns one Broker Consumer
// and one Filter Chain, tracks in-flight message ids, and enforces a
// declarative ending-offset bound per partition.
//
// Open question (spec §9): whether a record dropped by deserialization
// failure or by the filter chain should still advance the committed
// offset. This implementation does not auto-commit dropped records — see
// SPEC_FULL.md "Open Questions" for the reasoning. A consequence is that a
// poison record or a filtered-out head-of-partition can delay offset
// progress until a later successful ack on the same partition.
package spout
