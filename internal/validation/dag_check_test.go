package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/pkg/schema"
)

func ganttWith(t *testing.T, tasks ...*diagram.Task) *diagram.Document {
	t.Helper()
	d := diagram.New(diagram.TypeGantt)
	require.NoError(t, d.AddSection(&diagram.Section{ID: "s1", Name: "Work"}))
	for _, task := range tasks {
		task.Section = "s1"
		require.NoError(t, d.AddTask(task))
	}
	return d
}

func TestTaskDeps_NoCycle_Linear(t *testing.T) {
	d := ganttWith(t,
		&diagram.Task{ID: "a", Start: "2024-01-01", Duration: "1d"},
		&diagram.Task{ID: "b", Duration: "1d", After: []string{"a"}},
		&diagram.Task{ID: "c", Duration: "1d", After: []string{"b"}},
	)
	result := validateTaskDependencies(d)
	assert.True(t, result.Valid())
}

func TestTaskDeps_NoCycle_Diamond(t *testing.T) {
	d := ganttWith(t,
		&diagram.Task{ID: "a"},
		&diagram.Task{ID: "b", After: []string{"a"}},
		&diagram.Task{ID: "c", After: []string{"a"}},
		&diagram.Task{ID: "d", After: []string{"b", "c"}},
	)
	assert.True(t, validateTaskDependencies(d).Valid())
}

func TestTaskDeps_SimpleCycle(t *testing.T) {
	d := ganttWith(t,
		&diagram.Task{ID: "root"},
		&diagram.Task{ID: "a", After: []string{"c"}},
		&diagram.Task{ID: "b", After: []string{"a"}},
		&diagram.Task{ID: "c", After: []string{"b"}},
	)
	result := validateTaskDependencies(d)
	require.Len(t, result.Errors, 3)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, result.Errors[i].ElementID)
		assert.Equal(t, schema.ErrCodeValidation, result.Errors[i].Code)
	}
}

func TestTaskDeps_SelfCycle(t *testing.T) {
	d := ganttWith(t, &diagram.Task{ID: "a", After: []string{"a"}})
	result := validateTaskDependencies(d)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, `task "a"`)
}

func TestTaskDeps_DanglingIgnored(t *testing.T) {
	d := ganttWith(t, &diagram.Task{ID: "a", After: []string{"ghost", "ghost"}})
	assert.True(t, validateTaskDependencies(d).Valid())
}

func TestTaskDeps_DownstreamOfCycleReported(t *testing.T) {
	d := ganttWith(t,
		&diagram.Task{ID: "a", After: []string{"b"}},
		&diagram.Task{ID: "b", After: []string{"a"}},
		&diagram.Task{ID: "tail", After: []string{"b"}},
	)
	result := validateTaskDependencies(d)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, "tail", result.Errors[2].ElementID)
}
