package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/grammar"
)

// GraphvizRenderer draws flowcharts, class diagrams and ER diagrams with the
// embedded Graphviz engine. Other diagram types are rejected so a Chain can
// move on.
type GraphvizRenderer struct {
	Format Format
}

// NewGraphvizRenderer returns a renderer producing SVG or PNG.
func NewGraphvizRenderer(f Format) *GraphvizRenderer {
	if f != FormatPNG {
		f = FormatSVG
	}
	return &GraphvizRenderer{Format: f}
}

// Name implements Renderer.
func (r *GraphvizRenderer) Name() string { return "graphviz" }

// Render implements Renderer.
func (r *GraphvizRenderer) Render(ctx context.Context, source string) (*Preview, error) {
	d := grammar.Parse(source)
	switch d.Type {
	case diagram.TypeFlowchart, diagram.TypeClass, diagram.TypeER:
	default:
		return nil, Failed(r.Name(), fmt.Errorf("graphviz: %s diagrams are not supported", d.Type))
	}
	data, err := r.RenderDocument(ctx, d)
	if err != nil {
		return nil, Failed(r.Name(), err)
	}
	return &Preview{Format: r.Format, Renderer: r.Name(), Data: data}, nil
}

// RenderDocument draws d directly, skipping the text round trip.
func (r *GraphvizRenderer) RenderDocument(ctx context.Context, d *diagram.Document) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("graphviz: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("graphviz: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(rankDir(d.Direction))
	if d.Title != "" {
		graph.SetLabel(d.Title)
	}

	switch d.Type {
	case diagram.TypeClass:
		err = drawClasses(graph, d)
	case diagram.TypeER:
		err = drawEntities(graph, d)
	default:
		err = drawFlowchart(graph, d)
	}
	if err != nil {
		return nil, err
	}

	format := graphviz.SVG
	if r.Format == FormatPNG {
		format = graphviz.PNG
	}
	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return nil, fmt.Errorf("graphviz: render %s: %w", r.Format, err)
	}
	return buf.Bytes(), nil
}

func rankDir(dir diagram.Direction) cgraph.RankDir {
	switch dir {
	case diagram.DirectionLR:
		return cgraph.LRRank
	case diagram.DirectionRL:
		return cgraph.RLRank
	case diagram.DirectionBT:
		return cgraph.BTRank
	default:
		return cgraph.TBRank
	}
}

// drawFlowchart creates one cluster per subgraph, nested as the document's
// containment says, and places every other node inside its innermost cluster.
func drawFlowchart(graph *cgraph.Graph, d *diagram.Document) error {
	containment := d.Containment()
	clusters := map[string]*cgraph.Graph{"": graph}

	var cluster func(id string) *cgraph.Graph
	cluster = func(id string) *cgraph.Graph {
		if g, ok := clusters[id]; ok {
			return g
		}
		parent := cluster(containment[id])
		sub, err := parent.CreateSubGraphByName("cluster_" + id)
		if err != nil {
			return parent
		}
		if n, ok := d.Node(id); ok {
			sub.SetLabel(dotLabel(n.Text))
		}
		sub.SetStyle(cgraph.DashedGraphStyle)
		clusters[id] = sub
		return sub
	}

	gvNodes := make(map[string]*cgraph.Node, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.IsSubgraph() {
			cluster(n.ID)
			continue
		}
		parent := cluster(containment[n.ID])
		gvNode, err := parent.CreateNodeByName(n.ID)
		if err != nil {
			return fmt.Errorf("graphviz: create node %s: %w", n.ID, err)
		}
		text := n.Text
		if text == "" {
			text = n.ID
		}
		gvNode.SetLabel(dotLabel(text))
		applyShape(gvNode, n.Shape)
		gvNodes[n.ID] = gvNode
	}

	for _, e := range d.Edges {
		from, to := gvNodes[e.From], gvNodes[e.To]
		if from == nil || to == nil {
			continue
		}
		edge, err := graph.CreateEdgeByName("", from, to)
		if err != nil {
			continue
		}
		if e.Label != "" {
			edge.SetLabel(dotLabel(e.Label))
		}
		applyEdgeStyle(edge, e.Style)
	}
	return nil
}

func applyShape(gvNode *cgraph.Node, shape diagram.Shape) {
	switch shape {
	case diagram.ShapeDiamond:
		gvNode.SetShape(cgraph.DiamondShape)
	case diagram.ShapeCircle:
		gvNode.SetShape(cgraph.CircleShape)
	case diagram.ShapeRounded:
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetStyle(cgraph.RoundedNodeStyle)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}
}

func applyEdgeStyle(edge *cgraph.Edge, style diagram.EdgeKind) {
	switch style {
	case diagram.EdgeOpen:
		edge.SetArrowHead(cgraph.NoneArrow)
	case diagram.EdgeBidirectional:
		edge.SetDir(cgraph.BothDir)
	case diagram.EdgeDotted:
		edge.SetStyle(cgraph.DottedEdgeStyle)
	case diagram.EdgeThick:
		edge.SetStyle(cgraph.BoldEdgeStyle)
	}
}

// drawClasses draws one box per class listing stereotype and members.
func drawClasses(graph *cgraph.Graph, d *diagram.Document) error {
	gvNodes := make(map[string]*cgraph.Node, len(d.Classes))
	for _, c := range d.Classes {
		gvNode, err := graph.CreateNodeByName(c.Name)
		if err != nil {
			return fmt.Errorf("graphviz: create class %s: %w", c.Name, err)
		}
		lines := []string{c.Name}
		if c.Stereotype != "" {
			lines = append([]string{"«" + c.Stereotype + "»"}, lines...)
		}
		lines = append(lines, c.Attributes...)
		lines = append(lines, c.Methods...)
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetLabel(dotLabel(strings.Join(lines, "\n")))
		gvNodes[c.Name] = gvNode
	}
	for _, rel := range d.Relations {
		from, to := gvNodes[rel.From], gvNodes[rel.To]
		if from == nil || to == nil {
			continue
		}
		edge, err := graph.CreateEdgeByName("", from, to)
		if err != nil {
			continue
		}
		if rel.Label != "" {
			edge.SetLabel(dotLabel(rel.Label))
		}
		applyRelationStyle(edge, rel.Type)
	}
	return nil
}

func applyRelationStyle(edge *cgraph.Edge, kind diagram.RelationKind) {
	if strings.Contains(string(kind), "..") {
		edge.SetStyle(cgraph.DashedEdgeStyle)
	}
	switch kind.Category() {
	case diagram.CategoryInheritance, diagram.CategoryRealization:
		edge.SetArrowHead(cgraph.EmptyArrow)
	case diagram.CategoryComposition:
		edge.SetArrowHead(cgraph.DiamondArrow)
	case diagram.CategoryAggregation:
		edge.SetArrowHead(cgraph.ODiamondArrow)
	case diagram.CategoryLink:
		edge.SetArrowHead(cgraph.NoneArrow)
	}
}

// drawEntities draws one box per entity listing its attributes.
func drawEntities(graph *cgraph.Graph, d *diagram.Document) error {
	gvNodes := make(map[string]*cgraph.Node, len(d.Entities))
	for _, e := range d.Entities {
		gvNode, err := graph.CreateNodeByName(e.Name)
		if err != nil {
			return fmt.Errorf("graphviz: create entity %s: %w", e.Name, err)
		}
		lines := []string{e.Name}
		for _, a := range e.Attributes {
			lines = append(lines, attributeText(a))
		}
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetLabel(dotLabel(strings.Join(lines, "\n")))
		gvNodes[e.Name] = gvNode
	}
	for _, rel := range d.ERRelations {
		from, to := gvNodes[rel.From], gvNodes[rel.To]
		if from == nil || to == nil {
			continue
		}
		edge, err := graph.CreateEdgeByName("", from, to)
		if err != nil {
			continue
		}
		edge.SetArrowHead(cgraph.NoneArrow)
		label := rel.Cardinality
		if rel.Label != "" {
			label += " " + rel.Label
		}
		edge.SetLabel(dotLabel(label))
	}
	return nil
}

func attributeText(a diagram.Attribute) string {
	parts := []string{a.Type, a.Name}
	for _, k := range a.Keys {
		parts = append(parts, string(k))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// dotLabel turns embedded newlines into Graphviz line breaks.
func dotLabel(s string) string {
	return strings.ReplaceAll(s, "\n", `\n`)
}
