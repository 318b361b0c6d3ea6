package render

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/grammar"
)

// ASCIIRenderer draws a text preview with box-drawing characters. When BinDir
// holds a mermaid-ascii binary, flowcharts and sequence diagrams go through it
// first.
type ASCIIRenderer struct {
	BinDir string
}

// Name implements Renderer.
func (r *ASCIIRenderer) Name() string { return "ascii" }

// Render implements Renderer.
func (r *ASCIIRenderer) Render(ctx context.Context, source string) (*Preview, error) {
	if err := ctx.Err(); err != nil {
		return nil, Failed(r.Name(), err)
	}
	d := grammar.Parse(source)
	text := RenderASCIIAuto(ctx, d, r.BinDir)
	return &Preview{Format: FormatText, Renderer: r.Name(), Data: []byte(text)}, nil
}

// RenderASCII renders d as a text diagram.
func RenderASCII(d *diagram.Document) string {
	var b strings.Builder
	if d.Title != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", d.Title)
	}
	switch d.Type {
	case diagram.TypeSequence:
		asciiSequence(&b, d)
	case diagram.TypeClass:
		asciiClasses(&b, d)
	case diagram.TypeER:
		asciiEntities(&b, d)
	case diagram.TypeGantt:
		asciiGantt(&b, d)
	case diagram.TypeJourney:
		asciiJourney(&b, d)
	default:
		asciiFlowchart(&b, d)
	}
	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

// makeBox draws a box around the given content lines.
func makeBox(content ...string) asciiBox {
	maxLen := 0
	for _, line := range content {
		maxLen = max(maxLen, runewidth.StringWidth(line))
	}
	width := maxLen + 4

	lines := []string{"┌" + strings.Repeat("─", width-2) + "┐"}
	for _, line := range content {
		pad := strings.Repeat(" ", maxLen-runewidth.StringWidth(line))
		lines = append(lines, "│ "+line+pad+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", width-2)+"┘")
	return asciiBox{lines: lines, width: width}
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}
	maxHeight := 0
	for _, box := range boxes {
		maxHeight = max(maxHeight, len(box.lines))
	}
	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between levels.
func renderConnector(b *strings.Builder) {
	b.WriteString("       │\n")
	b.WriteString("       ▼\n")
}

func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func nodeLabel(n *diagram.Node) string {
	if n.Text == "" {
		return n.ID
	}
	return firstLine(n.Text)
}

// flowLevels assigns every non-subgraph node to the rank of its longest
// incoming path. Nodes on a cycle land one rank below their deepest
// placed predecessor.
func flowLevels(d *diagram.Document) [][]*diagram.Node {
	var nodes []*diagram.Node
	for _, n := range d.Nodes {
		if !n.IsSubgraph() {
			nodes = append(nodes, n)
		}
	}
	indeg := make(map[string]int, len(nodes))
	out := make(map[string][]string)
	for _, e := range d.Edges {
		from, okFrom := d.Node(e.From)
		to, okTo := d.Node(e.To)
		if !okFrom || !okTo || from.IsSubgraph() || to.IsSubgraph() || e.From == e.To {
			continue
		}
		out[e.From] = append(out[e.From], e.To)
		indeg[e.To]++
	}

	level := make(map[string]int, len(nodes))
	done := make(map[string]bool, len(nodes))
	var queue []string
	for _, n := range nodes {
		if indeg[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	for len(nodes) > len(done) {
		if len(queue) == 0 {
			// Break a cycle at the first unplaced node in declaration order.
			for _, n := range nodes {
				if !done[n.ID] {
					queue = append(queue, n.ID)
					break
				}
			}
		}
		id := queue[0]
		queue = queue[1:]
		if done[id] {
			continue
		}
		done[id] = true
		for _, next := range out[id] {
			if done[next] {
				continue
			}
			level[next] = max(level[next], level[id]+1)
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	var levels [][]*diagram.Node
	for _, n := range nodes {
		l := level[n.ID]
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], n)
	}
	return levels
}

func asciiFlowchart(b *strings.Builder, d *diagram.Document) {
	levels := flowLevels(d)
	for i, level := range levels {
		boxes := make([]asciiBox, 0, len(level))
		for _, n := range level {
			boxes = append(boxes, makeBox(nodeLabel(n)))
		}
		renderBoxRow(b, boxes)
		if i < len(levels)-1 {
			renderConnector(b)
		}
	}

	containment := d.Containment()
	for _, sg := range d.Subgraphs() {
		fmt.Fprintf(b, "\n--- %s ---\n", nodeLabel(sg))
		for _, n := range d.Children(containment, sg.ID) {
			fmt.Fprintf(b, "    %s\n", nodeLabel(n))
		}
	}

	var labelled []string
	for _, e := range d.Edges {
		if !d.Has(diagram.KindNode, e.From) || !d.Has(diagram.KindNode, e.To) {
			continue
		}
		line := fmt.Sprintf("    %s ─→ %s", e.From, e.To)
		if e.Label != "" {
			line += " : " + e.Label
		}
		labelled = append(labelled, line)
	}
	if len(labelled) > 0 {
		b.WriteString("\n--- edges ---\n")
		b.WriteString(strings.Join(labelled, "\n"))
		b.WriteByte('\n')
	}
}

func asciiSequence(b *strings.Builder, d *diagram.Document) {
	boxes := make([]asciiBox, 0, len(d.Actors))
	for _, a := range d.Actors {
		boxes = append(boxes, makeBox(a.Label()))
	}
	renderBoxRow(b, boxes)
	b.WriteByte('\n')

	type item struct {
		seq  int
		line string
	}
	var items []item
	for _, m := range d.Messages {
		if !d.Has(diagram.KindActor, m.From) || !d.Has(diagram.KindActor, m.To) {
			continue
		}
		arrow := "──→"
		if strings.HasPrefix(string(m.Arrow), "--") {
			arrow = "┄┄→"
		}
		items = append(items, item{m.Seq, fmt.Sprintf("  %s %s %s: %s", m.From, arrow, m.To, m.Text)})
	}
	for _, n := range d.Notes {
		placement := n.Placement
		if placement == "" {
			placement = diagram.PlacementRight
		}
		items = append(items, item{n.Seq, fmt.Sprintf("  [note %s %s] %s", placement, n.ActorID, n.Text)})
	}
	slices.SortStableFunc(items, func(x, y item) int { return cmp.Compare(x.seq, y.seq) })
	for _, it := range items {
		b.WriteString(strings.TrimRight(it.line, " :"))
		b.WriteByte('\n')
	}
}

func asciiClasses(b *strings.Builder, d *diagram.Document) {
	boxes := make([]asciiBox, 0, len(d.Classes))
	for _, c := range d.Classes {
		content := []string{c.Name}
		if c.Stereotype != "" {
			content = append([]string{"<<" + c.Stereotype + ">>"}, content...)
		}
		content = append(content, c.Attributes...)
		content = append(content, c.Methods...)
		boxes = append(boxes, makeBox(content...))
	}
	renderBoxRow(b, boxes)
	for _, r := range d.Relations {
		if !d.Has(diagram.KindClass, r.From) || !d.Has(diagram.KindClass, r.To) {
			continue
		}
		line := fmt.Sprintf("  %s %s %s", r.From, r.Type, r.To)
		if r.Label != "" {
			line += " : " + r.Label
		}
		b.WriteString(line + "\n")
	}
}

func asciiEntities(b *strings.Builder, d *diagram.Document) {
	boxes := make([]asciiBox, 0, len(d.Entities))
	for _, e := range d.Entities {
		content := []string{e.Name}
		for _, a := range e.Attributes {
			content = append(content, attributeText(a))
		}
		boxes = append(boxes, makeBox(content...))
	}
	renderBoxRow(b, boxes)
	for _, r := range d.ERRelations {
		if !d.Has(diagram.KindEntity, r.From) || !d.Has(diagram.KindEntity, r.To) {
			continue
		}
		fmt.Fprintf(b, "  %s %s %s : %s\n", r.From, r.Cardinality, r.To, r.Label)
	}
}

func asciiGantt(b *strings.Builder, d *diagram.Document) {
	for _, g := range grammar.Generate(d).Groups {
		fmt.Fprintf(b, "[%s]\n", g.Title)
		for _, id := range g.Members {
			t, ok := d.Task(id)
			if !ok {
				continue
			}
			when := t.Start
			if len(t.After) > 0 {
				when = "after " + strings.Join(t.After, " ")
			}
			bar := "████"
			if t.Milestone {
				bar = "◆"
			}
			fmt.Fprintf(b, "  %-20s %s %s %s\n", t.Name, bar, when, t.Duration)
		}
	}
}

func asciiJourney(b *strings.Builder, d *diagram.Document) {
	for _, g := range grammar.Generate(d).Groups {
		fmt.Fprintf(b, "[%s]\n", g.Title)
		for _, id := range g.Members {
			el, ok := d.Lookup(diagram.KindStep, id)
			if !ok {
				continue
			}
			s := el.(*diagram.Step)
			score := min(max(s.Score, 0), 5)
			stars := strings.Repeat("★", score) + strings.Repeat("☆", 5-score)
			line := fmt.Sprintf("  %-20s %s %s", s.Name, stars, strconv.Itoa(s.Score))
			if len(s.Actors) > 0 {
				line += " (" + strings.Join(s.Actors, ", ") + ")"
			}
			b.WriteString(line + "\n")
		}
	}
}
