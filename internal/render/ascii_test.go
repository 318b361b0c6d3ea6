package render

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/grammar"
)

func TestRenderASCIIFlowchart(t *testing.T) {
	d := grammar.Parse(`---
title: ETL Pipeline
---
flowchart TD
    subgraph sinks [Sinks]
        store
    end
    fetch[Fetch data] --> transform --> store
    fetch -.->|retry| fetch`)

	output := RenderASCII(d)
	assert.Contains(t, output, "=== ETL Pipeline ===")
	assert.Contains(t, output, "┌")
	assert.Contains(t, output, "┐")
	assert.Contains(t, output, "└")
	assert.Contains(t, output, "┘")
	assert.Contains(t, output, "│")
	assert.Contains(t, output, "▼")
	assert.Contains(t, output, "Fetch data")
	assert.Contains(t, output, "--- Sinks ---\n    store\n")
	assert.Contains(t, output, "fetch ─→ fetch : retry")
}

func TestFlowLevels(t *testing.T) {
	d := grammar.Parse("flowchart TD\n    A --> B --> D\n    A --> C --> B\n    E --> F --> E\n")
	levels := flowLevels(d)

	ids := make([][]string, len(levels))
	for i, level := range levels {
		for _, n := range level {
			ids[i] = append(ids[i], n.ID)
		}
	}
	assert.Equal(t, [][]string{{"A", "E"}, {"C", "F"}, {"B"}, {"D"}}, ids)
}

func TestRenderASCIIOtherTypes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "sequence",
			source: "sequenceDiagram\n    participant A as Alice\n    A->>B: hi\n    Note over B: hmm\n    B-->>A: bye",
			want:   []string{"Alice", "A ──→ B: hi", "[note over B] hmm", "B ┄┄→ A: bye"},
		},
		{
			name:   "class",
			source: "classDiagram\n    class Animal {\n        <<abstract>>\n        +eat()\n    }\n    Dog --|> Animal",
			want:   []string{"<<abstract>>", "+eat()", "Dog --|> Animal"},
		},
		{
			name:   "er",
			source: "erDiagram\n    CUSTOMER ||--o{ ORDER : places\n    ORDER {\n        int id PK\n    }",
			want:   []string{"int id PK", "CUSTOMER ||--o{ ORDER : places"},
		},
		{
			name:   "gantt",
			source: "gantt\n    section Plan\n    Spec :s1, 2024-01-01, 2d\n    Ship :milestone, m1, 2024-01-05, 0d",
			want:   []string{"[Plan]", "Spec", "████ 2024-01-01 2d", "◆ 2024-01-05 0d"},
		},
		{
			name:   "journey",
			source: "journey\n    section Morning\n      Coffee: 4: Me, Cat",
			want:   []string{"[Morning]", "Coffee", "★★★★☆ 4 (Me, Cat)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := RenderASCII(grammar.Parse(tt.source))
			for _, w := range tt.want {
				assert.Contains(t, output, w)
			}
		})
	}
}

func TestMakeBoxWideRunes(t *testing.T) {
	box := makeBox("日本")
	require.Len(t, box.lines, 3)
	assert.Equal(t, 8, box.width)
	assert.Equal(t, "│ 日本 │", box.lines[1])
}

func TestMermaidForCLI(t *testing.T) {
	d := grammar.Parse(`flowchart LR
    start[Start here] -->|go| fetch
    subgraph box
        lonely((Alone))
    end`)

	result, ok := MermaidForCLI(d)
	require.True(t, ok)
	assert.Contains(t, result, "graph TD")
	assert.Contains(t, result, "Start-here -->|go| fetch")
	assert.Contains(t, result, "    Alone\n")
	assert.NotContains(t, result, "[\"")
	assert.NotContains(t, result, "subgraph")

	_, ok = MermaidForCLI(grammar.Parse("classDiagram\n    class A"))
	assert.False(t, ok)
}

func TestRenderASCIIViaCLI(t *testing.T) {
	binPath := findMermaidASCII()
	if binPath == "" {
		t.Skip("mermaid-ascii binary not found, skipping CLI test")
	}

	source, _ := MermaidForCLI(grammar.Parse("flowchart TD\n    Start --> fetch --> End"))
	result, err := RenderASCIIViaCLI(context.Background(), source, binPath)
	require.NoError(t, err)
	assert.Contains(t, result, "Start")
	assert.Contains(t, result, "fetch")
}

func TestRenderASCIIAutoFallback(t *testing.T) {
	d := grammar.Parse("---\ntitle: Test\n---\nflowchart TD\n    Start --> fetch")

	result := RenderASCIIAuto(context.Background(), d, "/nonexistent/path")
	assert.Contains(t, result, "=== Test ===")
	assert.Contains(t, result, "Start")

	result = RenderASCIIAuto(context.Background(), d, "")
	assert.Contains(t, result, "fetch")
}

func TestASCIIRenderer(t *testing.T) {
	r := &ASCIIRenderer{}
	p, err := r.Render(context.Background(), "flowchart TD\n    A --> B")
	require.NoError(t, err)
	assert.Equal(t, FormatText, p.Format)
	assert.Equal(t, "ascii", p.Renderer)
	assert.Contains(t, string(p.Data), "│ A │")
}

// findMermaidASCII checks common paths for the mermaid-ascii binary.
func findMermaidASCII() string {
	home, _ := os.UserHomeDir()
	if home != "" {
		p := home + "/.mermaidsync/bin/mermaid-ascii"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if _, err := os.Stat("/tmp/mermaid-ascii"); err == nil {
		return "/tmp/mermaid-ascii"
	}
	return ""
}
