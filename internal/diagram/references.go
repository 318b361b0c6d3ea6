package diagram

import "fmt"

// ReferenceError describes an element field naming a missing target.
type ReferenceError struct {
	Kind      Kind
	ElementID string
	Field     string
	Target    string
	Reason    string
}

func (e *ReferenceError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "does not exist"
	}
	return fmt.Sprintf("%s %s: %s %q %s", e.Kind, e.ElementID, e.Field, e.Target, reason)
}

// CheckReferences reports every dangling or invalid reference in the document.
// Generators never call it as a gate; they skip such references instead.
func (d *Document) CheckReferences() []*ReferenceError {
	var errs []*ReferenceError
	ref := func(kind Kind, id, field string, target Kind, to string) {
		if !d.Has(target, to) {
			errs = append(errs, &ReferenceError{Kind: kind, ElementID: id, Field: field, Target: to})
		}
	}

	for _, n := range d.Nodes {
		if n.ContainerID == "" {
			continue
		}
		c, ok := d.Node(n.ContainerID)
		switch {
		case !ok:
			errs = append(errs, &ReferenceError{Kind: KindNode, ElementID: n.ID, Field: "container_id", Target: n.ContainerID})
		case !c.IsSubgraph():
			errs = append(errs, &ReferenceError{Kind: KindNode, ElementID: n.ID, Field: "container_id", Target: n.ContainerID, Reason: "is not a subgraph"})
		case d.containerCycle(n):
			errs = append(errs, &ReferenceError{Kind: KindNode, ElementID: n.ID, Field: "container_id", Target: n.ContainerID, Reason: "forms a containment cycle"})
		}
	}
	for _, e := range d.Edges {
		ref(KindEdge, e.ID, "from", KindNode, e.From)
		ref(KindEdge, e.ID, "to", KindNode, e.To)
	}
	for _, m := range d.Messages {
		ref(KindMessage, m.ID, "from", KindActor, m.From)
		ref(KindMessage, m.ID, "to", KindActor, m.To)
	}
	for _, n := range d.Notes {
		ref(KindNote, n.ID, "actor_id", KindActor, n.ActorID)
	}
	for _, r := range d.Relations {
		ref(KindRelation, r.ID, "from", KindClass, r.From)
		ref(KindRelation, r.ID, "to", KindClass, r.To)
	}
	for _, r := range d.ERRelations {
		ref(KindERRelation, r.ID, "from", KindEntity, r.From)
		ref(KindERRelation, r.ID, "to", KindEntity, r.To)
	}
	for _, t := range d.Tasks {
		for _, dep := range t.After {
			ref(KindTask, t.ID, "after", KindTask, dep)
		}
	}
	return errs
}

// containerCycle reports whether following stored container ids from n
// leads back to n.
func (d *Document) containerCycle(n *Node) bool {
	seen := map[string]bool{}
	for cur := n.ContainerID; cur != ""; {
		if cur == n.ID {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		next, ok := d.Node(cur)
		if !ok {
			return false
		}
		cur = next.ContainerID
	}
	return false
}
