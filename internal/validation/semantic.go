package validation

import (
	"fmt"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// validateSemantic performs semantic analysis on a document.
// Checks: dangling references, duplicate ids within a kind, elements that
// belong to another diagram type, out-of-range journey scores and items
// the generators would drop.
func validateSemantic(d *diagram.Document) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	for _, ref := range d.CheckReferences() {
		result.AddError(referencePath(d, ref), ref.ElementID, schema.ErrCodeReference, ref.Error())
	}

	checkDuplicates(d, result)
	checkForeignElements(d, result)

	for i, s := range d.Steps {
		if s.Score < 0 || s.Score > 5 {
			result.AddWarning(fmt.Sprintf("/steps/%d/score", i), s.ID, schema.ErrCodeValidation,
				fmt.Sprintf("journey score %d is outside 1..5", s.Score))
		}
		if s.Section == "" {
			result.AddWarning(fmt.Sprintf("/steps/%d/section", i), s.ID, schema.ErrCodeValidation,
				fmt.Sprintf("step %q has no section and is not generated", s.ID))
		}
	}
	for i, t := range d.Tasks {
		if t.Section == "" {
			result.AddWarning(fmt.Sprintf("/tasks/%d/section", i), t.ID, schema.ErrCodeValidation,
				fmt.Sprintf("task %q has no section and is not generated", t.ID))
		}
	}

	if d.IsEmpty() {
		result.AddWarning("/", "", schema.ErrCodeValidation, "document is empty; generation emits placeholder content")
	}

	return result
}

// referencePath locates the offending field as a JSON pointer.
func referencePath(d *diagram.Document, ref *diagram.ReferenceError) string {
	var list string
	idx := -1
	switch ref.Kind {
	case diagram.KindNode:
		list, idx = "nodes", indexOf(d.Nodes, ref.ElementID)
	case diagram.KindEdge:
		list, idx = "edges", indexOf(d.Edges, ref.ElementID)
	case diagram.KindMessage:
		list, idx = "messages", indexOf(d.Messages, ref.ElementID)
	case diagram.KindNote:
		list, idx = "notes", indexOf(d.Notes, ref.ElementID)
	case diagram.KindRelation:
		list, idx = "relations", indexOf(d.Relations, ref.ElementID)
	case diagram.KindERRelation:
		list, idx = "er_relations", indexOf(d.ERRelations, ref.ElementID)
	case diagram.KindTask:
		list, idx = "tasks", indexOf(d.Tasks, ref.ElementID)
	default:
		return "/"
	}
	if idx < 0 {
		return "/" + list
	}
	return fmt.Sprintf("/%s/%d/%s", list, idx, ref.Field)
}

func indexOf[T diagram.Element](list []T, id string) int {
	for i, el := range list {
		if el.ElementID() == id {
			return i
		}
	}
	return -1
}

// checkDuplicates reports ids shared by two elements of the same kind. The
// index keeps only the last one, so lookups would silently miss the first.
func checkDuplicates(d *diagram.Document, result *schema.ValidationResult) {
	seen := make(map[diagram.Kind]map[string]bool)
	for _, el := range d.Elements() {
		ids, ok := seen[el.Kind()]
		if !ok {
			ids = make(map[string]bool)
			seen[el.Kind()] = ids
		}
		if ids[el.ElementID()] {
			result.AddError("/", el.ElementID(), schema.ErrCodeValidation,
				fmt.Sprintf("duplicate %s id %q", el.Kind(), el.ElementID()))
		}
		ids[el.ElementID()] = true
	}
}

// kindsByType lists the element kinds each diagram type generates.
var kindsByType = map[diagram.Type][]diagram.Kind{
	diagram.TypeFlowchart: {diagram.KindNode, diagram.KindEdge},
	diagram.TypeSequence:  {diagram.KindActor, diagram.KindMessage, diagram.KindNote},
	diagram.TypeClass:     {diagram.KindClass, diagram.KindRelation},
	diagram.TypeER:        {diagram.KindEntity, diagram.KindERRelation},
	diagram.TypeGantt:     {diagram.KindSection, diagram.KindTask},
	diagram.TypeJourney:   {diagram.KindSection, diagram.KindStep},
}

// checkForeignElements warns about elements the document's generator ignores.
func checkForeignElements(d *diagram.Document, result *schema.ValidationResult) {
	allowed := make(map[diagram.Kind]bool)
	for _, k := range kindsByType[d.Type] {
		allowed[k] = true
	}
	counts := make(map[diagram.Kind]int)
	var order []diagram.Kind
	for _, el := range d.Elements() {
		if allowed[el.Kind()] {
			continue
		}
		if counts[el.Kind()] == 0 {
			order = append(order, el.Kind())
		}
		counts[el.Kind()]++
	}
	for _, k := range order {
		result.AddWarning("/", "", schema.ErrCodeValidation,
			fmt.Sprintf("%d %s element(s) are ignored by %s generation", counts[k], k, d.Type))
	}
}
