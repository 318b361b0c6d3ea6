package layout

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// Fixed placement constants for the non-flowchart types.
const (
	seqActorX    = 150.0
	seqActorStep = 200.0
	seqActorY    = 100.0
	seqItemY     = 200.0
	seqItemStep  = 80.0
	seqNoteShift = 60.0

	gridOrigin  = 200.0
	gridColStep = 250.0
	gridRowStep = 200.0
	gridCols    = 3

	sectionOriginY = 250.0
	orphanRowY     = 100.0
	ganttStep      = 150.0
	ganttTaskDY    = 50.0
	journeyStep    = 200.0
	journeyStepDY  = 60.0
)

// Fallback tries each layouter in turn and returns the first success.
type Fallback struct {
	Layouters []Layouter
	Logger    *slog.Logger
}

// NewFallback chains layouters, typically Graphviz then the grid.
func NewFallback(logger *slog.Logger, layouters ...Layouter) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{Layouters: layouters, Logger: logger}
}

// Layout implements Layouter.
func (f *Fallback) Layout(ctx context.Context, g Graph) (*Result, error) {
	var last error
	for i, l := range f.Layouters {
		r, err := l.Layout(ctx, g)
		if err == nil {
			return r, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.Logger.Warn("layouter failed, trying next", "index", i, "error", err)
		last = err
	}
	if last == nil {
		return NewGridLayouter().Layout(ctx, g)
	}
	return nil, last
}

// Arrange assigns geometry to every element of d. Flowcharts are laid out by
// l (the grid when nil) and keep their containment: subgraphs with members
// become clusters whose bounds are fitted around them. Gantt and journey
// items are grouped by their stored section.
func Arrange(ctx context.Context, d *diagram.Document, l Layouter) error {
	switch d.Type {
	case diagram.TypeSequence:
		arrangeSequence(d)
	case diagram.TypeClass:
		for i, c := range d.Classes {
			c.Bounds = gridCell(i, 180, 120)
		}
	case diagram.TypeER:
		for i, e := range d.Entities {
			e.Bounds = gridCell(i, 180, 60+20*float64(len(e.Attributes)))
		}
	case diagram.TypeGantt:
		arrangeSections(d, d.Tasks, ganttStep, ganttTaskDY, 160, 40, 180,
			func(t *diagram.Task) string { return t.Section },
			func(t *diagram.Task, b diagram.Bounds) { t.Bounds = b })
	case diagram.TypeJourney:
		arrangeSections(d, d.Steps, journeyStep, journeyStepDY, 140, 60, 160,
			func(s *diagram.Step) string { return s.Section },
			func(s *diagram.Step, b diagram.Bounds) { s.Bounds = b })
	default:
		if l == nil {
			l = NewGridLayouter()
		}
		return arrangeFlowchart(ctx, d, l)
	}
	return nil
}

// FlowchartGraph converts the flowchart part of d into a layout graph along
// with the containment it was derived from.
func FlowchartGraph(d *diagram.Document) (Graph, map[string]string) {
	containment := d.Containment()
	hasMembers := make(map[string]bool)
	for _, parent := range containment {
		hasMembers[parent] = true
	}

	g := Graph{Direction: d.Direction}
	for _, n := range d.Nodes {
		if n.IsSubgraph() && hasMembers[n.ID] {
			g.Clusters = append(g.Clusters, Cluster{ID: n.ID, ContainerID: containment[n.ID]})
			continue
		}
		w, h := NodeSize(n)
		g.Nodes = append(g.Nodes, Node{ID: n.ID, Width: w, Height: h, ContainerID: containment[n.ID]})
	}
	for _, e := range d.Edges {
		g.Edges = append(g.Edges, Edge{From: e.From, To: e.To})
	}
	return g, containment
}

func arrangeFlowchart(ctx context.Context, d *diagram.Document, l Layouter) error {
	g, containment := FlowchartGraph(d)
	r, err := l.Layout(ctx, g)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeLayoutFailed, "layout failed: %v", err).WithCause(err)
	}
	Apply(d, g, r)
	fitClusters(d, containment)
	for _, n := range d.Nodes {
		n.ContainerID = containment[n.ID]
	}
	return nil
}

// fitClusters sizes every subgraph with members to the union of its members
// plus padding, innermost first.
func fitClusters(d *diagram.Document, containment map[string]string) {
	done := make(map[string]bool)
	var fit func(s *diagram.Node) diagram.Bounds
	fit = func(s *diagram.Node) diagram.Bounds {
		if done[s.ID] {
			return s.Bounds
		}
		done[s.ID] = true
		var u diagram.Bounds
		for _, c := range d.Children(containment, s.ID) {
			b := c.Bounds
			if c.IsSubgraph() {
				b = fit(c)
			}
			u = u.Union(b)
		}
		if !u.Empty() {
			s.Bounds = diagram.Bounds{
				X: u.X - ClusterPad,
				Y: u.Y - ClusterPadTop,
				W: u.W + 2*ClusterPad,
				H: u.H + ClusterPadTop + ClusterPad,
			}
		}
		return s.Bounds
	}
	for _, s := range d.Subgraphs() {
		fit(s)
	}
}

// arrangeSequence spreads actors along one row and stacks messages and notes
// below them in their current emission order.
func arrangeSequence(d *diagram.Document) {
	actors := slices.Clone(d.Actors)
	if sized(actors, func(a *diagram.Actor) diagram.Bounds { return a.Bounds }) {
		slices.SortStableFunc(actors, func(a, b *diagram.Actor) int { return cmp.Compare(a.Bounds.X, b.Bounds.X) })
	}
	for i, a := range actors {
		a.Bounds = diagram.Bounds{X: seqActorX + float64(i)*seqActorStep, Y: seqActorY, W: 120, H: 60}
	}

	type item struct {
		seq int
		y   float64
		b   *diagram.Bounds
		msg *diagram.Message
		n   *diagram.Note
	}
	var items []item
	for _, m := range d.Messages {
		items = append(items, item{seq: m.Seq, y: m.Bounds.Y, b: &m.Bounds, msg: m})
	}
	for _, n := range d.Notes {
		items = append(items, item{seq: n.Seq, y: n.Bounds.Y, b: &n.Bounds, n: n})
	}
	byY := sized(items, func(it item) diagram.Bounds { return *it.b })
	slices.SortStableFunc(items, func(a, b item) int {
		if byY {
			if c := cmp.Compare(a.y, b.y); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.seq, b.seq)
	})

	for k, it := range items {
		y := seqItemY + float64(k)*seqItemStep
		switch {
		case it.msg != nil:
			from, okFrom := d.Actor(it.msg.From)
			to, okTo := d.Actor(it.msg.To)
			if !okFrom || !okTo {
				*it.b = diagram.Bounds{X: seqActorX, Y: y, W: 100, H: 20}
				continue
			}
			x1, x2 := from.Bounds.CenterX(), to.Bounds.CenterX()
			if x1 > x2 {
				x1, x2 = x2, x1
			}
			w := x2 - x1
			if w == 0 {
				w = 100
			}
			*it.b = diagram.Bounds{X: x1, Y: y, W: w, H: 20}
		default:
			x := seqActorX
			if a, ok := d.Actor(it.n.ActorID); ok {
				switch it.n.Placement {
				case diagram.PlacementLeft:
					x = a.Bounds.X - seqNoteShift
				case diagram.PlacementOver:
					x = a.Bounds.X
				default:
					x = a.Bounds.X + seqNoteShift
				}
			}
			*it.b = diagram.Bounds{X: x, Y: y, W: 100, H: 40}
		}
	}
}

func gridCell(i int, w, h float64) diagram.Bounds {
	return diagram.Bounds{
		X: gridOrigin + float64(i%gridCols)*gridColStep,
		Y: gridOrigin + float64(i/gridCols)*gridRowStep,
		W: w,
		H: h,
	}
}

// arrangeSections places one header per section and lays the section's items
// on a single row under it. Items whose section is unknown form a row above
// the first header.
func arrangeSections[T any](d *diagram.Document, items []T, step, dy, w, h, colStep float64,
	section func(T) string, place func(T, diagram.Bounds)) {
	rows := make(map[string][]T)
	var orphans []T
	for _, it := range items {
		if _, ok := d.Section(section(it)); ok {
			rows[section(it)] = append(rows[section(it)], it)
			continue
		}
		orphans = append(orphans, it)
	}

	for j, it := range orphans {
		place(it, diagram.Bounds{X: gridOrigin + float64(j)*colStep, Y: orphanRowY, W: w, H: h})
	}
	y := sectionOriginY
	for _, sec := range d.Sections {
		row := rows[sec.ID]
		sec.Bounds = diagram.Bounds{X: 50, Y: y, W: float64(max(len(row), 1))*colStep + gridOrigin, H: 30}
		for j, it := range row {
			place(it, diagram.Bounds{X: gridOrigin + float64(j)*colStep, Y: y + dy, W: w, H: h})
		}
		y += step
	}
}

func sized[T any](items []T, bounds func(T) diagram.Bounds) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if bounds(it).Empty() {
			return false
		}
	}
	return true
}
