package expressions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/pkg/schema"
)

func TestNewCELEngine(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	assert.NotNil(t, e)
	assert.Equal(t, "cel", e.Name())
}

func TestCEL_Literals(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	out, err := e.Evaluate(context.Background(), "true", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, true, out)

	out, err = e.Evaluate(context.Background(), "1 + 2", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)
}

func TestCEL_ElementScope(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	data := map[string]any{
		"kind": "node",
		"el": map[string]any{
			"id":     "B",
			"shape":  "diamond",
			"bounds": map[string]any{"x": 120.0, "y": 40.0, "w": 120.0, "h": 120.0},
		},
		"doc": map[string]any{"type": "flowchart"},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`kind == "node" && el.shape == "diamond"`, true},
		{`el.bounds.x > 100.0`, true},
		{`el.bounds.w >= 120`, true},
		{`has(el.label)`, false},
		{`doc.type == "sequenceDiagram"`, false},
		{`el.id.startsWith("B")`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			out, err := e.Evaluate(context.Background(), tt.expr, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCEL_MissingScopeDefaults(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	out, err := e.Evaluate(context.Background(), `kind == "" && size(el) == 0`, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestCEL_Errors(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), "", nil)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))

	_, err = e.Evaluate(context.Background(), "kind ==", nil)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeQuery))
	assert.Contains(t, err.Error(), "compile error")

	_, err = e.Evaluate(context.Background(), "el.missing == 1", map[string]any{"el": map[string]any{}})
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeQuery))
	assert.Contains(t, err.Error(), "evaluation failed")
}

func TestCEL_CacheConcurrent(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.Evaluate(context.Background(), `kind == "edge"`, map[string]any{"kind": "edge"})
			assert.NoError(t, err)
			assert.Equal(t, true, out)
		}()
	}
	wg.Wait()
	assert.Len(t, e.cache, 1)
}
