// Package trigger defines the Sideline Request record (spec §4.H/§6): the
// durable shape the Persistence Contract stores, independent of both the
// persistence backend and the handler that interprets it. Keeping the type
// here (rather than inside internal/persistence or internal/sideline) avoids
// an import cycle between the two.
package trigger

import "github.com/mohsanabbas/firehose/internal/offsetmap"

// Type is one of the three sideline trigger kinds (spec §4.H).
type Type string

const (
	Start  Type = "START"
	Resume Type = "RESUME"
	Stop   Type = "STOP"
)

// ID identifies one sideline request, generated once at START and carried
// through RESUME/STOP.
type ID string

// FilterStepSpec is a serializable description of one filter chain step.
// Predicate logic itself is pluggable (spec §1 Non-goals: filter-step
// authoring); this repo only needs to round-trip enough to hand the spec to
// a registered Factory on RESUME. Name picks the registered predicate kind
// ("key-equals", "key-prefix", ...); Args are its parameters.
type FilterStepSpec struct {
	Name string            `yaml:"name" json:"name"`
	Args map[string]string `yaml:"args" json:"args"`
}

// Request is the full record persisted for one sideline lifecycle (spec
// §4.H): install steps at START, fill in EndingOffsets at STOP.
type Request struct {
	ID              ID                   `yaml:"id" json:"id"`
	Type            Type                 `yaml:"type" json:"type"`
	FilterSteps     []FilterStepSpec     `yaml:"filterSteps" json:"filterSteps"`
	StartingOffsets *offsetmap.OffsetMap `yaml:"-" json:"-"`
	EndingOffsets   *offsetmap.OffsetMap `yaml:"-" json:"-"`
}
