package grammar

import (
	"regexp"
	"strings"

	"github.com/rendis/mermaidsync/internal/diagram"
)

// classParser is a two-state machine: outside any block, or inside the
// `class X {` block of current.
type classParser struct {
	doc     *diagram.Document
	current *diagram.Class
}

var classMethod = regexp.MustCompile(`\(.*\)`)

func relationAlternation() string {
	parts := make([]string, len(diagram.RelationKinds))
	for i, k := range diagram.RelationKinds {
		parts[i] = regexp.QuoteMeta(string(k))
	}
	return strings.Join(parts, "|")
}

const className = `(\w+)(?:~[^~]*~)?`

var classOutsideRules = RuleSet[*classParser]{
	{
		Name:    "block",
		Pattern: regexp.MustCompile(`^class\s+` + className + `(?:\s*\["[^"]*"\])?\s*\{\s*(\})?\s*$`),
		Apply: func(p *classParser, m []string) {
			c := p.ensure(m[1])
			if m[2] == "" {
				p.current = c
			}
		},
	},
	{
		Name:    "declaration",
		Pattern: regexp.MustCompile(`^class\s+` + className + `(?:\s*\["[^"]*"\])?(?::::\w+)?\s*;?$`),
		Apply:   func(p *classParser, m []string) { p.ensure(m[1]) },
	},
	{
		Name:    "annotation",
		Pattern: regexp.MustCompile(`^<<\s*(.+?)\s*>>\s*(\w+)\s*;?$`),
		Apply:   func(p *classParser, m []string) { p.ensure(m[2]).Stereotype = m[1] },
	},
	{
		Name: "relation",
		Pattern: regexp.MustCompile(`^` + className + `\s*(?:"[^"]*"\s*)?(` + relationAlternation() +
			`)\s*(?:"[^"]*"\s*)?` + className + `\s*(?::\s*(.*))?$`),
		Apply: func(p *classParser, m []string) {
			p.ensure(m[1])
			p.ensure(m[3])
			_ = p.doc.AddRelation(&diagram.Relation{
				From:  m[1],
				To:    m[3],
				Type:  diagram.RelationKind(m[2]),
				Label: strings.TrimSpace(m[4]),
			})
		},
	},
	{
		Name:    "member",
		Pattern: regexp.MustCompile(`^` + className + `\s*:\s*(.+)$`),
		Apply:   func(p *classParser, m []string) { p.addMember(p.ensure(m[1]), m[2]) },
	},
	{
		Name:    "bare",
		Pattern: regexp.MustCompile(`^` + className + `\s*;?$`),
		Apply:   func(p *classParser, m []string) { p.ensure(m[1]) },
	},
}

var classInsideRules = RuleSet[*classParser]{
	{
		Name:    "close",
		Pattern: regexp.MustCompile(`^\}\s*;?$`),
		Apply:   func(p *classParser, _ []string) { p.current = nil },
	},
	{
		Name:    "stereotype",
		Pattern: regexp.MustCompile(`^<<\s*(.+?)\s*>>$`),
		Apply:   func(p *classParser, m []string) { p.current.Stereotype = m[1] },
	},
	{
		Name:    "member",
		Pattern: regexp.MustCompile(`^.+$`),
		Apply:   func(p *classParser, m []string) { p.addMember(p.current, m[0]) },
	},
}

func parseClass(lines []string) *diagram.Document {
	p := &classParser{doc: diagram.New(diagram.TypeClass)}
	for _, line := range lines {
		if p.current != nil {
			classInsideRules.Apply(p, line)
			continue
		}
		classOutsideRules.Apply(p, line)
	}
	return p.doc
}

func (p *classParser) ensure(name string) *diagram.Class {
	if c, ok := p.doc.Class(name); ok {
		return c
	}
	c := &diagram.Class{Name: name}
	_ = p.doc.AddClass(c)
	return c
}

func (p *classParser) addMember(c *diagram.Class, member string) {
	member = strings.TrimSpace(member)
	if member == "" {
		return
	}
	if classMethod.MatchString(member) {
		c.Methods = append(c.Methods, member)
		return
	}
	c.Attributes = append(c.Attributes, member)
}
