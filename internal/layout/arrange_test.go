package layout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/grammar"
)

// arrangeRoundTrip parses text, arranges it and checks that regenerating
// from the new geometry gives back the same text.
func arrangeRoundTrip(t *testing.T, text string) *diagram.Document {
	t.Helper()
	d := grammar.Parse(text)
	want := grammar.Generate(d).Text

	require.NoError(t, Arrange(context.Background(), d, nil))
	assert.Equal(t, want, grammar.Generate(d).Text)
	return d
}

func TestArrangeFlowchartKeepsContainment(t *testing.T) {
	d := arrangeRoundTrip(t, `flowchart LR
    subgraph outer [Outer]
        A --> B
        subgraph inner
            C
        end
        subgraph empty
        end
    end
    B --> C
    Start --> A`)

	outer, _ := d.Node("outer")
	inner, _ := d.Node("inner")
	empty, _ := d.Node("empty")
	start, _ := d.Node("Start")
	c, _ := d.Node("C")

	assert.True(t, outer.Bounds.StrictlyContains(inner.Bounds))
	assert.True(t, outer.Bounds.StrictlyContains(empty.Bounds))
	assert.True(t, inner.Bounds.Contains(c.Bounds))
	assert.False(t, outer.Bounds.Contains(start.Bounds))
	assert.Equal(t, 200.0, empty.Bounds.W, "empty subgraphs are placed as plain boxes")

	containment := d.Containment()
	assert.Equal(t, "outer", containment["A"])
	assert.Equal(t, "inner", containment["C"])
	assert.Equal(t, "outer", containment["inner"])
	assert.NotContains(t, containment, "Start")
}

func TestArrangeSequence(t *testing.T) {
	d := arrangeRoundTrip(t, `sequenceDiagram
    participant B
    participant A
    A->>B: hi
    Note over A: waves
    Note left of B: before
    B-->>A: bye
    Note right of A: after`)

	b, _ := d.Actor("B")
	a, _ := d.Actor("A")
	assert.Equal(t, 150.0, b.Bounds.X)
	assert.Equal(t, 350.0, a.Bounds.X)
	assert.Equal(t, 200.0, d.Messages[0].Bounds.Y)
	assert.Equal(t, 440.0, d.Messages[1].Bounds.Y)
}

func TestArrangeClassAndER(t *testing.T) {
	d := arrangeRoundTrip(t, "classDiagram\n    class A\n    class B\n    class C\n    class D\n    A <|-- D\n")
	dc, _ := d.Class("D")
	assert.Equal(t, diagram.Bounds{X: 200, Y: 400, W: 180, H: 120}, dc.Bounds)

	d = arrangeRoundTrip(t, "erDiagram\n    CUSTOMER ||--o{ ORDER : places\n    ORDER {\n        int id PK\n    }\n")
	order, _ := d.Entity("ORDER")
	assert.Equal(t, diagram.Bounds{X: 450, Y: 200, W: 180, H: 80}, order.Bounds)
}

func TestArrangeGanttKeepsSections(t *testing.T) {
	d := arrangeRoundTrip(t, `gantt
    title Release
    dateFormat YYYY-MM-DD
    axisFormat %m/%d
    section Plan
    Spec :s1, 2024-01-01, 2d
    Review :r1, after s1, 1d
    section Empty
    section Build
    Code :c1, 2024-01-04, 5d`)

	require.Len(t, d.Sections, 3)
	assert.Equal(t, 250.0, d.Sections[0].Bounds.Y)
	assert.Equal(t, 550.0, d.Sections[2].Bounds.Y)
	assert.Equal(t, 600.0, d.Tasks[2].Bounds.Y)
}

func TestArrangeGanttOrphansStayDefault(t *testing.T) {
	d := diagram.New(diagram.TypeGantt)
	require.NoError(t, d.AddSection(&diagram.Section{ID: "s1", Name: "Plan"}))
	require.NoError(t, d.AddTask(&diagram.Task{ID: "o", Name: "Loose"}))
	require.NoError(t, d.AddTask(&diagram.Task{ID: "p", Name: "Placed", Section: "s1"}))
	want := grammar.Generate(d).Text

	require.NoError(t, Arrange(context.Background(), d, nil))
	assert.Equal(t, want, grammar.Generate(d).Text)
}

func TestArrangeJourney(t *testing.T) {
	d := arrangeRoundTrip(t, `journey
    title Day
    section Morning
      Wake: 2: Me
      Coffee: 5: Me, Cat
    section Evening
      Sleep: 5: Me`)

	assert.Equal(t, 310.0, d.Steps[0].Bounds.Y)
	assert.Equal(t, 510.0, d.Steps[2].Bounds.Y)
}
