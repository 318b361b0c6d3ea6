package validation

import (
	"fmt"
	"sort"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// validateTaskDependencies performs graph analysis on gantt "after"
// dependencies: cycle detection (Kahn's algorithm). Tasks on a cycle have no
// resolvable start date.
func validateTaskDependencies(d *diagram.Document) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if len(d.Tasks) == 0 {
		return result
	}

	taskIDs := make(map[string]bool, len(d.Tasks))
	for _, t := range d.Tasks {
		taskIDs[t.ID] = true
	}

	// edges[id] = dependencies of task id, reverse[id] = dependents of task id.
	edges := make(map[string][]string, len(d.Tasks))
	reverse := make(map[string][]string, len(d.Tasks))
	for _, t := range d.Tasks {
		seen := make(map[string]bool, len(t.After))
		for _, dep := range t.After {
			if !taskIDs[dep] || seen[dep] {
				continue // dangling refs already caught by semantic
			}
			seen[dep] = true
			edges[t.ID] = append(edges[t.ID], dep)
			reverse[dep] = append(reverse[dep], t.ID)
		}
	}

	inDegree := make(map[string]int, len(taskIDs))
	for id := range taskIDs {
		inDegree[id] = len(edges[id])
	}

	queue := make([]string, 0, len(taskIDs))
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	visited := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range reverse[node] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited == len(taskIDs) {
		return result
	}

	var cyclic []string
	for _, t := range d.Tasks {
		if inDegree[t.ID] > 0 {
			cyclic = append(cyclic, t.ID)
		}
	}
	for _, id := range cyclic {
		result.AddError("/tasks", id, schema.ErrCodeValidation,
			fmt.Sprintf("task %q is part of an \"after\" dependency cycle", id))
	}
	return result
}
