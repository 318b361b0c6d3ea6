package diagram

// Subgraphs returns the subgraph nodes in declaration order.
func (d *Document) Subgraphs() []*Node {
	var out []*Node
	for _, n := range d.Nodes {
		if n.IsSubgraph() {
			out = append(out, n)
		}
	}
	return out
}

// Containment maps the id of every nested node (subgraphs included) to the id
// of its enclosing subgraph. Top-level nodes are absent from the map.
//
// Containment is derived from geometry whenever the node and at least one
// subgraph have bounds: the node belongs to a subgraph whose bounds fully
// contain it. A subgraph only nests inside a strictly larger one. When several
// subgraphs qualify, any candidate that strictly contains another candidate is
// dropped (the innermost wins) and the remaining tie goes to the first
// subgraph in declaration order. Nodes without geometry keep their stored
// ContainerID when it names an existing subgraph.
func (d *Document) Containment() map[string]string {
	subs := d.Subgraphs()
	sized := false
	for _, s := range subs {
		if !s.Bounds.Empty() {
			sized = true
			break
		}
	}

	out := make(map[string]string)
	for _, n := range d.Nodes {
		if sized && !n.Bounds.Empty() {
			if c := containerByBounds(n, subs); c != "" {
				out[n.ID] = c
			}
			continue
		}
		if n.ContainerID == "" || n.ContainerID == n.ID {
			continue
		}
		if c, ok := d.Node(n.ContainerID); ok && c.IsSubgraph() {
			out[n.ID] = n.ContainerID
		}
	}
	breakCycles(out, subs)
	return out
}

func containerByBounds(n *Node, subs []*Node) string {
	var candidates []*Node
	for _, s := range subs {
		if s == n || s.Bounds.Empty() || !s.Bounds.Contains(n.Bounds) {
			continue
		}
		if n.IsSubgraph() && !s.Bounds.StrictlyContains(n.Bounds) {
			continue
		}
		candidates = append(candidates, s)
	}

	for _, c := range candidates {
		innermost := true
		for _, o := range candidates {
			if o != c && c.Bounds.StrictlyContains(o.Bounds) {
				innermost = false
				break
			}
		}
		if innermost {
			return c.ID
		}
	}
	return ""
}

// breakCycles removes the container link of the first subgraph found on each
// containment cycle, which can only arise from stored container ids.
func breakCycles(m map[string]string, subs []*Node) {
	for _, s := range subs {
		seen := map[string]bool{s.ID: true}
		for cur, ok := m[s.ID]; ok; cur, ok = m[cur] {
			if cur == s.ID {
				delete(m, s.ID)
				break
			}
			if seen[cur] {
				break
			}
			seen[cur] = true
		}
	}
}

// Children returns the direct members of container ("" for top level) in
// declaration order, according to the given containment map.
func (d *Document) Children(containment map[string]string, container string) []*Node {
	var out []*Node
	for _, n := range d.Nodes {
		if containment[n.ID] == container {
			out = append(out, n)
		}
	}
	return out
}
