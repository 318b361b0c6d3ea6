package expressions

import (
	"context"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// Match is one element selected by a predicate.
type Match struct {
	Kind    diagram.Kind    `json:"kind"`
	ID      string          `json:"id"`
	Element diagram.Element `json:"element"`
}

// Result is the outcome of Run: element matches for predicate engines,
// raw outputs for jq.
type Result struct {
	Engine  string  `json:"engine"`
	Matches []Match `json:"matches,omitempty"`
	Values  []any   `json:"values,omitempty"`
}

// Select evaluates a boolean predicate against every element of d, in
// document order, and returns those for which it holds.
func Select(ctx context.Context, eng Engine, d *diagram.Document, predicate string) ([]Match, error) {
	sb := NewScopeBuilder(d)
	var out []Match
	for _, el := range d.Elements() {
		if err := ctx.Err(); err != nil {
			return nil, schema.NewError(schema.ErrCodeCancelled, "selection cancelled").WithCause(err)
		}
		data, err := sb.Build(el)
		if err != nil {
			return nil, err
		}
		v, err := eng.Evaluate(ctx, predicate, data)
		if err != nil {
			return nil, err
		}
		ok, isBool := v.(bool)
		if !isBool {
			return nil, schema.NewErrorf(schema.ErrCodeQuery,
				"predicate %q must return a boolean, got %T", predicate, v).
				WithElement(el.ElementID())
		}
		if ok {
			out = append(out, Match{Kind: el.Kind(), ID: el.ElementID(), Element: el})
		}
	}
	return out, nil
}

// Query runs a jq program over the JSON form of d and returns every output.
func Query(ctx context.Context, jq *GoJQEngine, d *diagram.Document, program string) ([]any, error) {
	data, err := ToData(d)
	if err != nil {
		return nil, err
	}
	return jq.EvaluateAll(ctx, program, data)
}

// Run dispatches expression to the named engine: jq queries the document,
// cel and expr select elements.
func Run(ctx context.Context, engine string, d *diagram.Document, expression string) (*Result, error) {
	eng, err := NewEngine(engine)
	if err != nil {
		return nil, err
	}
	res := &Result{Engine: eng.Name()}
	if jq, ok := eng.(*GoJQEngine); ok {
		res.Values, err = Query(ctx, jq, d, expression)
	} else {
		res.Matches, err = Select(ctx, eng, d, expression)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
