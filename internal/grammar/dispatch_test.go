package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/diagram"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want diagram.Type
	}{
		{"empty", "", diagram.TypeFlowchart},
		{"flowchart", "flowchart LR\n  A --> B", diagram.TypeFlowchart},
		{"graph", "graph TD\n  A --> B", diagram.TypeFlowchart},
		{"no header", "A --> B", diagram.TypeFlowchart},
		{"sequence", "sequenceDiagram\n  A->>B: hi", diagram.TypeSequence},
		{"class", "classDiagram\n  class A", diagram.TypeClass},
		{"er", "erDiagram\n  A ||--o{ B : has", diagram.TypeER},
		{"gantt", "gantt\n  title T", diagram.TypeGantt},
		{"journey", "journey\n  title T", diagram.TypeJourney},
		{"comments and blanks skipped", "\n%% note\n\n   classDiagram", diagram.TypeClass},
		{"front matter skipped", "---\ntitle: Orders\n---\nerDiagram\n", diagram.TypeER},
		{"only first line counts", "flowchart TD\nsequenceDiagram", diagram.TypeFlowchart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text))
		})
	}
}

func TestDetectPriorityOrder(t *testing.T) {
	tests := []struct {
		line string
		want diagram.Type
	}{
		{"journey gantt erDiagram classDiagram sequenceDiagram", diagram.TypeSequence},
		{"journey gantt erDiagram classDiagram", diagram.TypeClass},
		{"journey gantt erDiagram", diagram.TypeER},
		{"journey gantt", diagram.TypeGantt},
		{"journey", diagram.TypeJourney},
		{"A[gantt] --> B", diagram.TypeGantt},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.line))
		})
	}
}

func TestParseEmptyAndHeaderOnly(t *testing.T) {
	inputs := []string{
		"",
		"   \n\n",
		"%% only a comment",
		"flowchart TD",
		"graph LR",
		"sequenceDiagram",
		"classDiagram",
		"erDiagram",
		"gantt",
		"journey",
		"this is not mermaid at all ::: }{",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			var d *diagram.Document
			require.NotPanics(t, func() { d = Parse(in) })
			require.NotNil(t, d)
			if in == "this is not mermaid at all ::: }{" {
				return
			}
			assert.Equal(t, 0, d.Len())
		})
	}
}

func TestParseKeepsDetectedType(t *testing.T) {
	assert.Equal(t, diagram.TypeGantt, Parse("gantt\n").Type)
	assert.Equal(t, diagram.TypeJourney, Parse("journey\n").Type)
	assert.Equal(t, diagram.TypeFlowchart, Parse("").Type)
}

func TestFrontMatterTitle(t *testing.T) {
	d := Parse("---\ntitle: Checkout flow\n---\nflowchart LR\n  A --> B\n")
	assert.Equal(t, "Checkout flow", d.Title)
	assert.Equal(t, diagram.DirectionLR, d.Direction)

	out := Generate(d)
	assert.Contains(t, out.Text, "---\ntitle: Checkout flow\n---\nflowchart LR\n")
	assert.Equal(t, "Checkout flow", Parse(out.Text).Title)
}

func TestParseAsIgnoresHeader(t *testing.T) {
	d := ParseAs(diagram.TypeSequence, "A->>B: hi")
	assert.Equal(t, diagram.TypeSequence, d.Type)
	assert.Len(t, d.Messages, 1)

	d = ParseAs(diagram.TypeSequence, "sequenceDiagram\nA->>B: hi")
	assert.Len(t, d.Messages, 1)
}

func TestGenerateRoutesOnType(t *testing.T) {
	for _, typ := range diagram.Types {
		d := diagram.New(typ)
		out := Generate(d)
		assert.Equal(t, typ, out.Type)
		assert.Equal(t, typ, Detect(out.Text), "generated text is detected as its own type")
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	docs := []*diagram.Document{
		Parse("flowchart LR\n A[One] --> B(Two) & C{Three}\n subgraph S [Group]\n D((Four))\n end\n C --> D"),
		Parse("sequenceDiagram\n participant A as Alice\n A->>B: hi\n Note over B: ok\n B-->>A: bye"),
		Parse("classDiagram\n class A {\n +int x\n +run()\n }\n A <|-- B : extends"),
		Parse("erDiagram\n CUSTOMER {\n int id PK\n }\n CUSTOMER ||--o{ ORDER : places"),
		Parse("gantt\n section S\n T1 :t1, 2024-01-01, 2d\n T2 :after t1, 1d"),
		Parse("journey\n section Day\n Wake: 3: Me"),
	}
	for _, d := range docs {
		t.Run(string(d.Type), func(t *testing.T) {
			first := Generate(d)
			second := Generate(d)
			assert.Equal(t, first, second)

			again := Generate(Parse(first.Text))
			assert.Equal(t, first.Text, again.Text, "generate(parse(generate(M))) is stable")
		})
	}
}

func TestRuleSetFirstMatchWins(t *testing.T) {
	assert.Equal(t, []string{"header", "subgraph", "end", "styling", "accessibility", "statement"}, flowchartRules.Names())

	r, _ := flowchartRules.Match("end")
	require.NotNil(t, r)
	assert.Equal(t, "end", r.Name)

	r, _ = flowchartRules.Match("classDef red fill:#f00")
	require.NotNil(t, r)
	assert.Equal(t, "styling", r.Name)

	r, _ = flowchartRules.Match("endpoint --> B")
	require.NotNil(t, r)
	assert.Equal(t, "statement", r.Name)
}

func TestSplitLines(t *testing.T) {
	lines := SplitLines("  flowchart TD \r\n\n %% comment\n%%{init: {}}%%\n\tA --> B\n")
	assert.Equal(t, []string{"flowchart TD", "A --> B"}, lines)
}
