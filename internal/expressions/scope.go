package expressions

import (
	"encoding/json"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// ScopeBuilder constructs the per-element evaluation data for predicates.
// Every scope has three top-level variables:
//   - el:   the element as its JSON object (bounds, text, from/to, ...)
//   - kind: the element kind ("node", "edge", "actor", ...)
//   - doc:  document header fields (type, title, direction, counts)
//
// The document header is frozen at construction; each Build returns a copy.
type ScopeBuilder struct {
	doc map[string]any
}

// NewScopeBuilder snapshots the header of d.
func NewScopeBuilder(d *diagram.Document) *ScopeBuilder {
	counts := make(map[string]any)
	for _, el := range d.Elements() {
		k := string(el.Kind())
		n, _ := counts[k].(float64)
		counts[k] = n + 1
	}
	return &ScopeBuilder{doc: map[string]any{
		"type":        string(d.Type),
		"title":       d.Title,
		"direction":   string(d.Direction),
		"date_format": d.DateFormat,
		"counts":      counts,
	}}
}

// Build returns the evaluation data for one element.
func (sb *ScopeBuilder) Build(el diagram.Element) (map[string]any, error) {
	m, err := ToData(el)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"el":   m,
		"kind": string(el.Kind()),
		"doc":  deepCopyMap(sb.doc),
	}, nil
}

// ToData converts a model value to the JSON-shaped map the engines consume:
// numbers become float64, structs become map[string]any.
func ToData(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeQuery, "failed to serialize value").WithCause(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, schema.NewError(schema.ErrCodeQuery, "value is not a JSON object").WithCause(err)
	}
	return m, nil
}

// --- Deep copy utilities ---

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = deepCopyAny(v)
	}
	return cp
}

// deepCopyAny recursively deep-copies a value.
// Handles maps, slices, and primitives (which are inherently immutable).
func deepCopyAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = deepCopyAny(item)
		}
		return cp
	default:
		return v
	}
}
