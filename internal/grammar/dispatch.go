// Package grammar translates between the diagram model and Mermaid text.
//
// Each supported diagram type has a generator (model to text) and a parser
// (text to model). Parsers are best-effort: lines matching no rule are
// dropped, and no input text makes them fail. Generators are pure: the same
// document always yields byte-identical text.
package grammar

import (
	"strings"

	"github.com/rendis/mermaidsync/internal/diagram"
)

// Group is the side-channel grouping emitted with generated text: one entry
// per flowchart subgraph or gantt/journey section.
type Group struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Members []string `json:"members"`
}

// Output is the result of generating a document.
type Output struct {
	Type   diagram.Type `json:"type"`
	Text   string       `json:"text"`
	Groups []Group      `json:"groups,omitempty"`
	// Placeholder is set when the model was empty and illustrative sample
	// content was emitted instead.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Grammar pairs the generator and parser of one diagram type.
type Grammar struct {
	Type    diagram.Type
	Keyword string
	// Generate renders the document as text.
	Generate func(d *diagram.Document) Output
	// Parse builds a document from pre-split lines with the header removed
	// (the flowchart parser receives its header line too).
	Parse func(lines []string) *diagram.Document
}

var grammars = map[diagram.Type]Grammar{
	diagram.TypeFlowchart: {Type: diagram.TypeFlowchart, Keyword: "flowchart", Generate: generateFlowchart, Parse: parseFlowchart},
	diagram.TypeSequence:  {Type: diagram.TypeSequence, Keyword: "sequenceDiagram", Generate: generateSequence, Parse: parseSequence},
	diagram.TypeClass:     {Type: diagram.TypeClass, Keyword: "classDiagram", Generate: generateClass, Parse: parseClass},
	diagram.TypeER:        {Type: diagram.TypeER, Keyword: "erDiagram", Generate: generateER, Parse: parseER},
	diagram.TypeGantt:     {Type: diagram.TypeGantt, Keyword: "gantt", Generate: generateGantt, Parse: parseGantt},
	diagram.TypeJourney:   {Type: diagram.TypeJourney, Keyword: "journey", Generate: generateJourney, Parse: parseJourney},
}

// detectOrder is the keyword priority used by Detect. Keywords are matched
// as substrings, so this order decides lines containing several of them.
var detectOrder = []diagram.Type{
	diagram.TypeSequence,
	diagram.TypeClass,
	diagram.TypeER,
	diagram.TypeGantt,
	diagram.TypeJourney,
}

// Lookup returns the grammar registered for t.
func Lookup(t diagram.Type) (Grammar, bool) {
	g, ok := grammars[t]
	return g, ok
}

// Detect returns the diagram type of text, judged by its first meaningful
// line. Anything not recognised is a flowchart.
func Detect(text string) diagram.Type {
	_, body := splitFrontMatter(text)
	return detectLines(SplitLines(body))
}

func detectLines(lines []string) diagram.Type {
	if len(lines) == 0 {
		return diagram.TypeFlowchart
	}
	for _, t := range detectOrder {
		if strings.Contains(lines[0], grammars[t].Keyword) {
			return t
		}
	}
	return diagram.TypeFlowchart
}

// Parse detects the diagram type of text and parses it into a new document.
// It never fails: unrecognised content yields an empty document.
func Parse(text string) *diagram.Document {
	fm, body := splitFrontMatter(text)
	lines := SplitLines(body)
	t := detectLines(lines)
	if t != diagram.TypeFlowchart {
		lines = lines[1:]
	}
	return finish(grammars[t].Parse(lines), fm)
}

// ParseAs parses text with the grammar of t, regardless of its header.
func ParseAs(t diagram.Type, text string) *diagram.Document {
	g, ok := grammars[t]
	if !ok {
		g = grammars[diagram.TypeFlowchart]
	}
	fm, body := splitFrontMatter(text)
	lines := SplitLines(body)
	if g.Type != diagram.TypeFlowchart && len(lines) > 0 && strings.Contains(lines[0], g.Keyword) {
		lines = lines[1:]
	}
	return finish(g.Parse(lines), fm)
}

func finish(d *diagram.Document, fm frontMatter) *diagram.Document {
	if d.Title == "" {
		d.Title = fm.Title
	}
	return d
}

// Generate renders d with the grammar of its type.
func Generate(d *diagram.Document) Output {
	g, ok := grammars[d.Type]
	if !ok {
		g = grammars[diagram.TypeFlowchart]
	}
	out := g.Generate(d)
	out.Type = g.Type
	return out
}
