// Package deserialize provides the default Deserializer implementations the
// spec treats as a pluggable collaborator (spec §1): a minimal, always-
// available codec so the repo is runnable without a caller supplying its
// own, the same way internal/sideline/factory.go registers "key-equals" as
// a minimal always-available filter kind.
package deserialize

// UTF8 decodes key and value as UTF-8 strings, the collaborator named by
// spec §8's end-to-end scenarios ("UTF-8 deserializer"). It never reports
// poison: every record decodes successfully.
type UTF8 struct{}

func (UTF8) Deserialize(_ string, _ int32, _ int64, key, value []byte) (values []any, ok bool) {
	return []any{string(key), string(value)}, true
}

// Raw passes key and value through as raw bytes, for downstream stages
// that want to do their own decoding.
type Raw struct{}

func (Raw) Deserialize(_ string, _ int32, _ int64, key, value []byte) (values []any, ok bool) {
	return []any{key, value}, true
}
