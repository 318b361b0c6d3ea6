package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/pkg/schema"
)

func TestNewGoJQEngine(t *testing.T) {
	e := NewGoJQEngine()
	assert.Equal(t, "jq", e.Name())
}

func TestGoJQ_Outputs(t *testing.T) {
	e := NewGoJQEngine()
	data := map[string]any{
		"type": "flowchart",
		"nodes": []any{
			map[string]any{"id": "A", "shape": "rect"},
			map[string]any{"id": "B", "shape": "diamond"},
		},
	}

	out, err := e.Evaluate(context.Background(), ".type", data)
	require.NoError(t, err)
	assert.Equal(t, "flowchart", out)

	out, err = e.Evaluate(context.Background(), ".nodes[].id", data)
	require.NoError(t, err)
	assert.Equal(t, []any{"A", "B"}, out)

	out, err = e.Evaluate(context.Background(), `.nodes[] | select(.shape == "circle")`, data)
	require.NoError(t, err)
	assert.Nil(t, out)

	all, err := e.EvaluateAll(context.Background(), `[.nodes[] | select(.shape == "diamond") | .id]`, data)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{"B"}}, all)
}

func TestGoJQ_EnvBlocked(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), "$ENV | length", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 0, out)
}

func TestGoJQ_Errors(t *testing.T) {
	e := NewGoJQEngine()

	_, err := e.Evaluate(context.Background(), "", nil)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))

	_, err = e.Evaluate(context.Background(), ".nodes[", nil)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeQuery))
	assert.Contains(t, err.Error(), "compile error")

	_, err = e.Evaluate(context.Background(), `error("boom")`, map[string]any{})
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeQuery))
	assert.Contains(t, err.Error(), "boom")
}
