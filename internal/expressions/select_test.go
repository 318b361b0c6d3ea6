package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/grammar"
	"github.com/rendis/mermaidsync/pkg/schema"
)

const sampleFlowchart = "flowchart TD\n    A[Start] --> B{Ok?}\n    B -->|yes| C((End))\n    B -->|no| A"

func ids(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.ID)
	}
	return out
}

func TestSelect_CEL(t *testing.T) {
	d := grammar.Parse(sampleFlowchart)
	e, err := NewCELEngine()
	require.NoError(t, err)

	got, err := Select(context.Background(), e, d, `kind == "node" && el.shape == "diamond"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, ids(got))
	assert.Equal(t, diagram.KindNode, got[0].Kind)
	n, ok := got[0].Element.(*diagram.Node)
	require.True(t, ok)
	assert.Equal(t, "Ok?", n.Text)

	got, err = Select(context.Background(), e, d, `kind == "edge" && has(el.label)`)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSelect_Expr(t *testing.T) {
	d := grammar.Parse(sampleFlowchart)
	got, err := Select(context.Background(), NewExprEngine(), d, `kind == "edge" && el.to == "A"`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	e := got[0].Element.(*diagram.Edge)
	assert.Equal(t, "no", e.Label)
}

func TestSelect_Journey(t *testing.T) {
	d := grammar.Parse("journey\n    section Work\n        Plan: 5: Me\n        Meet: 1: Me, Boss\n        Code: 4: Me")
	e, err := NewCELEngine()
	require.NoError(t, err)

	got, err := Select(context.Background(), e, d, `kind == "step" && el.score >= 4.0`)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Plan", got[0].Element.(*diagram.Step).Name)
	assert.Equal(t, "Code", got[1].Element.(*diagram.Step).Name)
}

func TestSelect_NonBoolean(t *testing.T) {
	d := grammar.Parse(sampleFlowchart)
	_, err := Select(context.Background(), NewExprEngine(), d, `kind`)
	require.Error(t, err)
	se := err.(*schema.Error)
	assert.Equal(t, schema.ErrCodeQuery, se.Code)
	assert.Equal(t, "A", se.ElementID)
}

func TestSelect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Select(ctx, NewExprEngine(), grammar.Parse(sampleFlowchart), "true")
	assert.True(t, schema.HasCode(err, schema.ErrCodeCancelled))
}

func TestQuery_JQ(t *testing.T) {
	d := grammar.Parse(sampleFlowchart)
	out, err := Query(context.Background(), NewGoJQEngine(), d, `[.edges[] | select(.from == "B") | .to]`)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{"C", "A"}}, out)
}

func TestRun(t *testing.T) {
	d := grammar.Parse(sampleFlowchart)
	ctx := context.Background()

	res, err := Run(ctx, "jq", d, ".nodes | length")
	require.NoError(t, err)
	assert.Equal(t, "jq", res.Engine)
	assert.Equal(t, []any{3}, res.Values)
	assert.Empty(t, res.Matches)

	res, err = Run(ctx, "cel", d, `kind == "node"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, ids(res.Matches))

	_, err = Run(ctx, "lua", d, "x")
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))

	_, err = Run(ctx, "cel", d, "kind ==")
	assert.True(t, schema.HasCode(err, schema.ErrCodeQuery))
}
