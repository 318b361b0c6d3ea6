package expressions

import (
	"context"

	"github.com/rendis/mermaidsync/pkg/schema"
)

// Engine evaluates expressions against diagram data.
// Three implementations: CEL and Expr (element predicates), GoJQ (document queries).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// NewEngine returns the engine registered under name: "cel", "expr" or "jq".
func NewEngine(name string) (Engine, error) {
	switch name {
	case "cel":
		return NewCELEngine()
	case "expr":
		return NewExprEngine(), nil
	case "jq":
		return NewGoJQEngine(), nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown expression engine %q", name).
			WithDetails(map[string]any{"engines": []string{"cel", "expr", "jq"}})
	}
}

func compileError(engine, expression string, err error) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeQuery,
		"%s compile error in %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

func evalError(engine, expression string, err error) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeQuery,
		"%s evaluation failed for %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}
