package layout

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
)

const pointsPerInch = 72.0

// plainFormat is Graphviz's line-oriented layout dump:
// "node <name> <x> <y> <width> <height> ..." in inches, y growing upwards.
const plainFormat = graphviz.Format("plain")

var rankDirs = map[string]string{
	"TD": "TB", "TB": "TB", "BT": "BT", "LR": "LR", "RL": "RL",
}

// GraphvizLayouter runs the dot engine and reads node centres back from
// the plain output. Clusters become Graphviz clusters.
type GraphvizLayouter struct {
	// Margin is added around the whole drawing, in pixels.
	Margin float64
}

// NewGraphvizLayouter returns a layouter with a 40px margin.
func NewGraphvizLayouter() *GraphvizLayouter {
	return &GraphvizLayouter{Margin: 40}
}

// Layout implements Layouter.
func (l *GraphvizLayouter) Layout(ctx context.Context, g Graph) (*Result, error) {
	if len(g.Nodes) == 0 {
		return &Result{Positions: map[string]Point{}}, nil
	}
	dot, names := buildDOT(g)

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer graph.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, plainFormat, &buf); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return parsePlain(buf.Bytes(), names, l.Margin)
}

// buildDOT writes g as a DOT digraph. Node ids are replaced by n<index> so
// arbitrary Mermaid ids never need quoting; names maps them back.
func buildDOT(g Graph) (string, map[string]string) {
	names := make(map[string]string, len(g.Nodes))
	aliases := make(map[string]string, len(g.Nodes))
	for i, n := range g.Nodes {
		alias := "n" + strconv.Itoa(i)
		names[alias] = n.ID
		aliases[n.ID] = alias
	}

	rankdir, ok := rankDirs[string(g.Direction)]
	if !ok {
		rankdir = "TB"
	}

	var sb strings.Builder
	sb.WriteString("digraph G {\n")
	fmt.Fprintf(&sb, "  rankdir=%s;\n", rankdir)
	sb.WriteString("  nodesep=1.2;\n  ranksep=1.2;\n")
	sb.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n")

	known := make(map[string]bool, len(g.Clusters))
	for _, c := range g.Clusters {
		known[c.ID] = true
	}
	nodesIn := map[string][]Node{}
	for _, n := range g.Nodes {
		parent := n.ContainerID
		if !known[parent] {
			parent = ""
		}
		nodesIn[parent] = append(nodesIn[parent], n)
	}
	clustersIn := map[string][]int{}
	for i, c := range g.Clusters {
		parent := c.ContainerID
		if !known[parent] || parent == c.ID {
			parent = ""
		}
		clustersIn[parent] = append(clustersIn[parent], i)
	}

	var write func(container, indent string, seen map[string]bool)
	write = func(container, indent string, seen map[string]bool) {
		seen[container] = true
		for _, n := range nodesIn[container] {
			fmt.Fprintf(&sb, "%s%s [width=%.3f, height=%.3f];\n",
				indent, aliases[n.ID], n.Width/pointsPerInch, n.Height/pointsPerInch)
		}
		for _, i := range clustersIn[container] {
			c := g.Clusters[i]
			if seen[c.ID] {
				continue
			}
			fmt.Fprintf(&sb, "%ssubgraph cluster_%d {\n%s  margin=24;\n", indent, i, indent)
			write(c.ID, indent+"  ", seen)
			fmt.Fprintf(&sb, "%s}\n", indent)
		}
	}
	write("", "  ", map[string]bool{})

	for _, e := range g.Edges {
		from, okFrom := aliases[e.From]
		to, okTo := aliases[e.To]
		if !okFrom || !okTo {
			continue
		}
		fmt.Fprintf(&sb, "  %s -> %s;\n", from, to)
	}
	sb.WriteString("}\n")
	return sb.String(), names
}

// parsePlain converts plain-format node centres to top-left pixel positions.
func parsePlain(out []byte, names map[string]string, margin float64) (*Result, error) {
	res := &Result{Positions: make(map[string]Point, len(names))}
	height := -1.0

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "graph":
			if len(fields) < 4 {
				return nil, fmt.Errorf("malformed graph line %q", sc.Text())
			}
			w, err1 := strconv.ParseFloat(fields[2], 64)
			h, err2 := strconv.ParseFloat(fields[3], 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("malformed graph line %q", sc.Text())
			}
			height = h
			res.Width = w*pointsPerInch + 2*margin
			res.Height = h*pointsPerInch + 2*margin
		case "node":
			if height < 0 {
				return nil, fmt.Errorf("node before graph line")
			}
			if len(fields) < 6 {
				return nil, fmt.Errorf("malformed node line %q", sc.Text())
			}
			id, ok := names[strings.Trim(fields[1], `"`)]
			if !ok {
				continue
			}
			vals := make([]float64, 4)
			for i := range vals {
				v, err := strconv.ParseFloat(fields[2+i], 64)
				if err != nil {
					return nil, fmt.Errorf("malformed node line %q: %w", sc.Text(), err)
				}
				vals[i] = v * pointsPerInch
			}
			x, y, w, h := vals[0], vals[1], vals[2], vals[3]
			res.Positions[id] = Point{
				X: margin + x - w/2,
				Y: margin + height*pointsPerInch - y - h/2,
			}
		case "stop":
			return res, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if height < 0 {
		return nil, fmt.Errorf("no layout in graphviz output")
	}
	return res, nil
}
