package sideline

import (
	"fmt"
	"strings"

	"github.com/mohsanabbas/firehose/internal/filter"
	"github.com/mohsanabbas/firehose/internal/trigger"
)

// MatchFunc reports whether rec belongs to the sideline criteria the spec
// was built for. It is the positive ("this record is part of the
// sideline") sense; Handler derives both the firehose's drop predicate and
// the drain consumer's keep predicate from it.
type MatchFunc func(filter.Record) bool

// Factory builds a MatchFunc from a persisted FilterStepSpec, the Go
// analogue of the original's pluggable filter-step authoring (spec §1
// Non-goals: filter-step authoring itself is out of scope, but something
// has to turn a persisted spec back into a predicate on RESUME).
type Factory func(trigger.FilterStepSpec) (MatchFunc, error)

var registry = map[string]Factory{}

// Register adds a named Factory, called from an init() in whatever package
// defines a concrete filter kind. Mirrors the teacher's
// source/kafka/registry.go Register/NewAdapter pattern.
func Register(name string, f Factory) {
	registry[name] = f
}

func build(spec trigger.FilterStepSpec) (MatchFunc, error) {
	f, ok := registry[spec.Name]
	if !ok {
		return nil, fmt.Errorf("sideline: unknown filter kind %q", spec.Name)
	}
	return f(spec)
}

func init() {
	// keyEquals drops/keeps based on an exact match of the record key
	// against args["key"]. A minimal, always-available filter kind so the
	// repo is usable without a caller registering its own.
	Register("key-equals", func(spec trigger.FilterStepSpec) (MatchFunc, error) {
		want := spec.Args["key"]
		return func(rec filter.Record) bool {
			return string(rec.Key) == want
		}, nil
	})

	// keyPrefix matches records whose key starts with args["prefix"].
	Register("key-prefix", func(spec trigger.FilterStepSpec) (MatchFunc, error) {
		prefix := spec.Args["prefix"]
		return func(rec filter.Record) bool {
			return strings.HasPrefix(string(rec.Key), prefix)
		}, nil
	})
}
