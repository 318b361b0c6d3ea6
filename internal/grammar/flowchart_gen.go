package grammar

import (
	"fmt"
	"strings"

	"github.com/rendis/mermaidsync/internal/diagram"
)

// generateFlowchart renders nodes, subgraph blocks and edges. Containment is
// derived from geometry at generation time, not read from the stored fields.
func generateFlowchart(d *diagram.Document) Output {
	var b strings.Builder
	writeFrontMatter(&b, d.Title)

	dir := d.Direction
	if dir == "" {
		dir = diagram.DirectionTD
	}
	b.WriteString(fmt.Sprintf("flowchart %s\n", dir))

	containment := d.Containment()
	var groups []Group

	// Top-level plain nodes first, then subgraph blocks.
	for _, n := range d.Children(containment, "") {
		if !n.IsSubgraph() {
			b.WriteString(fmt.Sprintf("    %s\n", flowchartNodeDef(n)))
		}
	}
	for _, n := range d.Children(containment, "") {
		if n.IsSubgraph() {
			writeSubgraph(&b, d, containment, n, 1, &groups)
		}
	}

	writeFlowchartEdges(&b, d)

	return Output{Text: b.String(), Groups: groups}
}

func writeSubgraph(b *strings.Builder, d *diagram.Document, containment map[string]string, sg *diagram.Node, depth int, groups *[]Group) {
	indent := strings.Repeat("    ", depth)
	title := sg.Text
	if title == "" {
		title = sg.ID
	}
	b.WriteString(fmt.Sprintf("%ssubgraph %s [\"%s\"]\n", indent, sg.ID, escapeLabel(title)))

	children := d.Children(containment, sg.ID)
	group := Group{Name: sg.ID, Title: title, Members: []string{}}
	for _, c := range children {
		group.Members = append(group.Members, c.ID)
	}
	*groups = append(*groups, group)

	for _, c := range children {
		if !c.IsSubgraph() {
			b.WriteString(fmt.Sprintf("%s    %s\n", indent, flowchartNodeDef(c)))
		}
	}
	for _, c := range children {
		if c.IsSubgraph() {
			writeSubgraph(b, d, containment, c, depth+1, groups)
		}
	}
	b.WriteString(fmt.Sprintf("%send\n", indent))
}

// writeFlowchartEdges emits edges grouped by source node, sources in order of
// first appearance. Edges naming a missing node are skipped.
func writeFlowchartEdges(b *strings.Builder, d *diagram.Document) {
	var sources []string
	bySource := make(map[string][]*diagram.Edge)
	for _, e := range d.Edges {
		if !d.Has(diagram.KindNode, e.From) || !d.Has(diagram.KindNode, e.To) {
			continue
		}
		if _, seen := bySource[e.From]; !seen {
			sources = append(sources, e.From)
		}
		bySource[e.From] = append(bySource[e.From], e)
	}
	for _, src := range sources {
		for _, e := range bySource[src] {
			style := e.Style
			if style == "" {
				style = diagram.EdgeArrow
			}
			if e.Label != "" {
				b.WriteString(fmt.Sprintf("    %s %s|%s| %s\n", e.From, style, escapeEdgeLabel(e.Label), e.To))
			} else {
				b.WriteString(fmt.Sprintf("    %s %s %s\n", e.From, style, e.To))
			}
		}
	}
}

// flowchartNodeDef returns the node declaration with its shape brackets.
func flowchartNodeDef(n *diagram.Node) string {
	text := n.Text
	if text == "" {
		text = n.ID
	}
	label := escapeLabel(text)

	switch n.Shape {
	case diagram.ShapeRounded:
		return fmt.Sprintf("%s(\"%s\")", n.ID, label)
	case diagram.ShapeCircle:
		return fmt.Sprintf("%s((\"%s\"))", n.ID, label)
	case diagram.ShapeDiamond:
		return fmt.Sprintf("%s{\"%s\"}", n.ID, label)
	default:
		return fmt.Sprintf("%s[\"%s\"]", n.ID, label)
	}
}
