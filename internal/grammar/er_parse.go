package grammar

import (
	"regexp"
	"strings"

	"github.com/rendis/mermaidsync/internal/diagram"
)

type erParser struct {
	doc     *diagram.Document
	current *diagram.Entity
}

const (
	erName        = `([\p{L}\p{N}_-]+)`
	erCardinality = `((?:\|o|\|\||\}o|\}\|)(?:--|\.\.)(?:o\||\|\||o\{|\|\{))`
)

var erOutsideRules = RuleSet[*erParser]{
	{
		Name:    "open",
		Pattern: regexp.MustCompile(`^` + erName + `(?:\s*\[[^\]]*\])?\s*\{\s*(\})?\s*$`),
		Apply: func(p *erParser, m []string) {
			e := p.ensure(m[1])
			if m[2] == "" {
				p.current = e
			}
		},
	},
	{
		Name:    "relation",
		Pattern: regexp.MustCompile(`^` + erName + `\s*` + erCardinality + `\s*` + erName + `\s*(?::\s*(.*))?$`),
		Apply: func(p *erParser, m []string) {
			p.ensure(m[1])
			p.ensure(m[3])
			_ = p.doc.AddERRelation(&diagram.ERRelation{
				From:        m[1],
				To:          m[3],
				Cardinality: m[2],
				Label:       unquote(m[4]),
			})
		},
	},
	{
		Name:    "entity",
		Pattern: regexp.MustCompile(`^` + erName + `\s*;?$`),
		Apply:   func(p *erParser, m []string) { p.ensure(m[1]) },
	},
}

var erInsideRules = RuleSet[*erParser]{
	{
		Name:    "close",
		Pattern: regexp.MustCompile(`^\}\s*;?$`),
		Apply:   func(p *erParser, _ []string) { p.current = nil },
	},
	{
		Name:    "attribute",
		Pattern: regexp.MustCompile(`^([\w()\[\],.<>-]+)\s+([\w*.-]+)((?:\s*,?\s*(?:PK|FK|UK))*)\s*(?:"([^"]*)")?\s*$`),
		Apply: func(p *erParser, m []string) {
			attr := diagram.Attribute{Type: m[1], Name: m[2], Comment: m[4]}
			for _, tok := range erKeyToken.FindAllString(m[3], -1) {
				if !containsKey(attr.Keys, diagram.KeyRole(tok)) {
					attr.Keys = append(attr.Keys, diagram.KeyRole(tok))
				}
			}
			p.current.Attributes = append(p.current.Attributes, attr)
		},
	},
}

func parseER(lines []string) *diagram.Document {
	p := &erParser{doc: diagram.New(diagram.TypeER)}
	for _, line := range lines {
		if p.current != nil {
			erInsideRules.Apply(p, line)
			continue
		}
		erOutsideRules.Apply(p, line)
	}
	return p.doc
}

func (p *erParser) ensure(name string) *diagram.Entity {
	name = strings.TrimSpace(name)
	if e, ok := p.doc.Entity(name); ok {
		return e
	}
	e := &diagram.Entity{Name: name}
	_ = p.doc.AddEntity(e)
	return e
}
