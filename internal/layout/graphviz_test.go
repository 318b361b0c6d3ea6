package layout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/diagram"
)

func TestBuildDOT(t *testing.T) {
	g := Graph{
		Direction: diagram.DirectionLR,
		Nodes: []Node{
			{ID: "start node", Width: 144, Height: 72},
			{ID: "B", Width: 72, Height: 72, ContainerID: "sg"},
		},
		Clusters: []Cluster{{ID: "sg"}},
		Edges:    []Edge{{From: "start node", To: "B"}, {From: "B", To: "sg"}},
	}
	dot, names := buildDOT(g)

	assert.Equal(t, map[string]string{"n0": "start node", "n1": "B"}, names)
	assert.Contains(t, dot, "rankdir=LR;")
	assert.Contains(t, dot, "n0 [width=2.000, height=1.000];")
	assert.Contains(t, dot, "subgraph cluster_0 {")
	assert.Contains(t, dot, "n0 -> n1;")
	assert.NotContains(t, dot, "sg", "edges to clusters are dropped")
}

func TestParsePlain(t *testing.T) {
	out := []byte(`graph 1 3 2
node n0 1 1.5 2 1 "" solid box black lightgrey
node n1 2 0.5 1 1 "" solid box black lightgrey
node n9 0 0 1 1 "" solid box black lightgrey
edge n0 n1 4 1 1 1 1 1 1 2 0.5 solid black
stop
`)
	r, err := parsePlain(out, map[string]string{"n0": "A", "n1": "B"}, 10)
	require.NoError(t, err)

	assert.Equal(t, Point{X: 10, Y: 10}, r.Positions["A"])
	assert.Equal(t, Point{X: 118, Y: 82}, r.Positions["B"])
	assert.Len(t, r.Positions, 2)
	assert.Equal(t, 3*72.0+20, r.Width)
	assert.Equal(t, 2*72.0+20, r.Height)
}

func TestParsePlainRejectsGarbage(t *testing.T) {
	_, err := parsePlain([]byte("node n0 1 1 1 1\n"), nil, 0)
	assert.Error(t, err)

	_, err = parsePlain([]byte("graph 1 x y\n"), nil, 0)
	assert.Error(t, err)

	_, err = parsePlain(nil, nil, 0)
	assert.Error(t, err)
}

func TestGraphvizLayoutFlowchart(t *testing.T) {
	d := diagram.New(diagram.TypeFlowchart)
	d.Direction = diagram.DirectionTD
	require.NoError(t, d.AddNode(&diagram.Node{ID: "sg", Text: "Group", Shape: diagram.ShapeSubgraph}))
	require.NoError(t, d.AddNode(&diagram.Node{ID: "A", Shape: diagram.ShapeRect, ContainerID: "sg"}))
	require.NoError(t, d.AddNode(&diagram.Node{ID: "B", Shape: diagram.ShapeDiamond, ContainerID: "sg"}))
	require.NoError(t, d.AddNode(&diagram.Node{ID: "C", Shape: diagram.ShapeCircle}))
	require.NoError(t, d.AddEdge(&diagram.Edge{From: "A", To: "B"}))
	require.NoError(t, d.AddEdge(&diagram.Edge{From: "B", To: "C"}))

	require.NoError(t, Arrange(context.Background(), d, NewGraphvizLayouter()))

	a, _ := d.Node("A")
	b, _ := d.Node("B")
	c, _ := d.Node("C")
	sg, _ := d.Node("sg")
	assert.Less(t, a.Bounds.Y, b.Bounds.Y, "top-down ranks follow edges")
	assert.Less(t, b.Bounds.Y, c.Bounds.Y)
	assert.True(t, sg.Bounds.Contains(a.Bounds))
	assert.True(t, sg.Bounds.Contains(b.Bounds))
	assert.False(t, sg.Bounds.Contains(c.Bounds))

	containment := d.Containment()
	assert.Equal(t, "sg", containment["A"])
	assert.NotContains(t, containment, "C")
}
