package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/grammar"
)

// RenderASCIIAuto tries the mermaid-ascii binary in binDir when the diagram
// type is one it understands, falling back to RenderASCII.
func RenderASCIIAuto(ctx context.Context, d *diagram.Document, binDir string) string {
	if binDir != "" {
		binPath := filepath.Join(binDir, "mermaid-ascii")
		if _, err := os.Stat(binPath); err == nil {
			if source, ok := MermaidForCLI(d); ok {
				result, err := RenderASCIIViaCLI(ctx, source, binPath)
				if err == nil {
					return result
				}
			}
		}
	}
	return RenderASCII(d)
}

// RenderASCIIViaCLI pipes Mermaid source through the mermaid-ascii binary.
func RenderASCIIViaCLI(ctx context.Context, source, binPath string) (string, error) {
	cmd := exec.CommandContext(ctx, binPath)
	cmd.Stdin = strings.NewReader(source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("mermaid-ascii: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// MermaidForCLI produces source mermaid-ascii can read. Flowcharts are
// reduced to plain edges between label-derived ids, since the tool cannot
// parse ["label"] declarations and ignores subgraph blocks. Sequence diagrams
// pass through the regular generator. Other types report false.
func MermaidForCLI(d *diagram.Document) (string, bool) {
	switch d.Type {
	case diagram.TypeSequence:
		return grammar.Generate(d).Text, true
	case diagram.TypeFlowchart:
	default:
		return "", false
	}

	var b strings.Builder
	b.WriteString("graph TD\n")

	displayID := make(map[string]string, len(d.Nodes))
	for _, n := range d.Nodes {
		displayID[n.ID] = cliNodeID(n)
	}

	connected := make(map[string]bool)
	for _, e := range d.Edges {
		from, okFrom := d.Node(e.From)
		to, okTo := d.Node(e.To)
		if !okFrom || !okTo || from.IsSubgraph() || to.IsSubgraph() {
			continue
		}
		label := ""
		if e.Label != "" {
			label = fmt.Sprintf("|%s|", e.Label)
		}
		fmt.Fprintf(&b, "    %s -->%s %s\n", displayID[e.From], label, displayID[e.To])
		connected[e.From], connected[e.To] = true, true
	}
	for _, n := range d.Nodes {
		if !n.IsSubgraph() && !connected[n.ID] {
			fmt.Fprintf(&b, "    %s\n", displayID[n.ID])
		}
	}
	return b.String(), true
}

// cliNodeID builds a display id from the node's first label line.
func cliNodeID(n *diagram.Node) string {
	id := nodeLabel(n)
	id = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t':
			return '-'
		case '[', ']', '(', ')', '{', '}', '|', '"', '>', '<':
			return -1
		}
		return r
	}, id)
	if id == "" {
		return n.ID
	}
	return id
}
