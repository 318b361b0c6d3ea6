package grammar

import (
	"regexp"
	"strings"

	"github.com/rendis/mermaidsync/internal/diagram"
)

type sequenceParser struct {
	doc *diagram.Document
}

const seqActor = `([^\s\-+:,>()]+)`

var sequenceRules = RuleSet[*sequenceParser]{
	{
		Name:    "participant",
		Pattern: regexp.MustCompile(`^(?:participant|actor)\s+` + seqActor + `(?:\s+as\s+(.+))?$`),
		Apply: func(p *sequenceParser, m []string) {
			a := p.ensure(m[1])
			if alias := strings.TrimSpace(m[2]); alias != "" {
				a.DisplayName = alias
			}
		},
	},
	{
		Name:    "note",
		Pattern: regexp.MustCompile(`(?i)^note\s+(left of|right of|over)\s+` + seqActor + `(?:\s*,\s*` + seqActor + `)?\s*:\s*(.*)$`),
		Apply: func(p *sequenceParser, m []string) {
			p.ensure(m[2])
			if m[3] != "" {
				p.ensure(m[3])
			}
			_ = p.doc.AddNote(&diagram.Note{
				ActorID:   m[2],
				Placement: diagram.Placement(strings.ToLower(m[1])),
				Text:      strings.TrimSpace(m[4]),
			})
		},
	},
	{
		Name:    "message",
		Pattern: regexp.MustCompile(`^` + seqActor + `\s*(-->>|->>|--x|-x|--\)|-\)|-->|->)\s*[+-]?\s*` + seqActor + `\s*(?::\s*(.*))?$`),
		Apply: func(p *sequenceParser, m []string) {
			p.ensure(m[1])
			p.ensure(m[3])
			_ = p.doc.AddMessage(&diagram.Message{
				From:  m[1],
				To:    m[3],
				Arrow: diagram.Arrow(m[2]),
				Text:  strings.TrimSpace(m[4]),
			})
		},
	},
}

func parseSequence(lines []string) *diagram.Document {
	p := &sequenceParser{doc: diagram.New(diagram.TypeSequence)}
	for _, line := range lines {
		sequenceRules.Apply(p, line)
	}
	return p.doc
}

// ensure registers an actor on first mention.
func (p *sequenceParser) ensure(id string) *diagram.Actor {
	if a, ok := p.doc.Actor(id); ok {
		return a
	}
	a := &diagram.Actor{ID: id}
	_ = p.doc.AddActor(a)
	return a
}
