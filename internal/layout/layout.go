// Package layout assigns geometry to diagram documents that have none, so a
// parsed diagram can be shown on the canvas. Flowcharts go through a
// pluggable Layouter; the other diagram types use fixed placement rules.
package layout

import (
	"context"

	"github.com/rendis/mermaidsync/internal/diagram"
)

// Point is a top-left canvas coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one box to be placed. ContainerID names the cluster it belongs to.
type Node struct {
	ID          string
	Width       float64
	Height      float64
	ContainerID string
}

// Cluster groups nodes that must be placed together. Clusters nest through
// ContainerID.
type Cluster struct {
	ID          string
	ContainerID string
}

// Edge is a directed connection between two layout nodes.
type Edge struct {
	From string
	To   string
}

// Graph is the input handed to a Layouter.
type Graph struct {
	Direction diagram.Direction
	Nodes     []Node
	Clusters  []Cluster
	Edges     []Edge
}

// Result holds the computed top-left position of every placed node.
type Result struct {
	Positions map[string]Point `json:"positions"`
	Width     float64          `json:"width"`
	Height    float64          `json:"height"`
}

// Layouter computes positions for a graph.
type Layouter interface {
	Layout(ctx context.Context, g Graph) (*Result, error)
}

// Default node sizes by shape.
var shapeSizes = map[diagram.Shape][2]float64{
	diagram.ShapeRect:     {160, 65},
	diagram.ShapeRounded:  {160, 65},
	diagram.ShapeCircle:   {80, 80},
	diagram.ShapeDiamond:  {120, 120},
	diagram.ShapeSubgraph: {200, 120},
}

// NodeSize returns the canvas size used for a flowchart node. Existing
// geometry wins over the shape default.
func NodeSize(n *diagram.Node) (w, h float64) {
	if !n.Bounds.Empty() {
		return n.Bounds.W, n.Bounds.H
	}
	if s, ok := shapeSizes[n.Shape]; ok {
		return s[0], s[1]
	}
	return shapeSizes[diagram.ShapeRect][0], shapeSizes[diagram.ShapeRect][1]
}

// Apply copies positions from r onto the flowchart nodes of d, sized as in g.
// Nodes absent from either g or r keep their bounds. It returns the number of
// nodes moved.
func Apply(d *diagram.Document, g Graph, r *Result) int {
	if r == nil {
		return 0
	}
	sizes := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		sizes[n.ID] = n
	}
	moved := 0
	for _, n := range d.Nodes {
		p, ok := r.Positions[n.ID]
		if !ok {
			continue
		}
		s, ok := sizes[n.ID]
		if !ok {
			continue
		}
		n.Bounds = diagram.Bounds{X: p.X, Y: p.Y, W: s.Width, H: s.Height}
		moved++
	}
	return moved
}
