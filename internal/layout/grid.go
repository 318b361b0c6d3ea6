package layout

import (
	"context"
	"math"
)

// Spacing used by the grid and by cluster fitting.
const (
	ClusterPad    = 30.0
	ClusterPadTop = 40.0
	gridGap       = 60.0
)

// GridLayouter places nodes row by row. Each cluster becomes a block of its
// own stacked under its parent's plain nodes, so clusters never overlap.
type GridLayouter struct {
	Columns int
	OriginX float64
	OriginY float64
}

// NewGridLayouter returns a grid with three columns starting at (40, 40).
func NewGridLayouter() *GridLayouter {
	return &GridLayouter{Columns: 3, OriginX: 40, OriginY: 40}
}

type gridTree struct {
	nodes    map[string][]Node
	clusters map[string][]string
}

// Layout implements Layouter.
func (l *GridLayouter) Layout(ctx context.Context, g Graph) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree := gridTree{nodes: map[string][]Node{}, clusters: map[string][]string{}}
	known := make(map[string]bool, len(g.Clusters))
	for _, c := range g.Clusters {
		known[c.ID] = true
	}
	for _, c := range g.Clusters {
		parent := c.ContainerID
		if !known[parent] || parent == c.ID {
			parent = ""
		}
		tree.clusters[parent] = append(tree.clusters[parent], c.ID)
	}
	for _, n := range g.Nodes {
		parent := n.ContainerID
		if !known[parent] {
			parent = ""
		}
		tree.nodes[parent] = append(tree.nodes[parent], n)
	}

	res := &Result{Positions: make(map[string]Point, len(g.Nodes))}
	w, h := l.block(tree, "", l.OriginX, l.OriginY, res.Positions, map[string]bool{})
	res.Width, res.Height = l.OriginX+w, l.OriginY+h
	return res, nil
}

// block lays out the members of container with its top-left corner at (x, y)
// and returns the block size. Non-root blocks reserve cluster padding.
func (l *GridLayouter) block(t gridTree, container string, x, y float64, pos map[string]Point, seen map[string]bool) (float64, float64) {
	seen[container] = true
	padX, padTop, padBottom := 0.0, 0.0, 0.0
	if container != "" {
		padX, padTop, padBottom = ClusterPad, ClusterPadTop, ClusterPad
	}
	cols := l.Columns
	if cols <= 0 {
		cols = 3
	}

	cx, cy := x+padX, y+padTop
	right, bottom := cx, cy
	rowH := 0.0
	for i, n := range t.nodes[container] {
		if i > 0 && i%cols == 0 {
			cx = x + padX
			cy += rowH + gridGap
			rowH = 0
		}
		pos[n.ID] = Point{X: cx, Y: cy}
		right = math.Max(right, cx+n.Width)
		bottom = math.Max(bottom, cy+n.Height)
		rowH = math.Max(rowH, n.Height)
		cx += n.Width + gridGap
	}
	if len(t.nodes[container]) > 0 {
		cy = bottom + gridGap
	}
	for _, child := range t.clusters[container] {
		if seen[child] {
			continue
		}
		w, h := l.block(t, child, x+padX, cy, pos, seen)
		right = math.Max(right, x+padX+w)
		bottom = math.Max(bottom, cy+h)
		cy += h + gridGap
	}
	return right - x + padX, bottom - y + padBottom
}
