package grammar

import (
	"fmt"
	"strings"

	"github.com/rendis/mermaidsync/internal/diagram"
)

// generateClass emits every class (a block only when it has a body) and then
// the relations between existing classes.
func generateClass(d *diagram.Document) Output {
	var b strings.Builder
	writeFrontMatter(&b, d.Title)
	b.WriteString("classDiagram\n")

	for _, c := range d.Classes {
		if !c.HasBody() {
			b.WriteString(fmt.Sprintf("    class %s\n", c.Name))
			continue
		}
		b.WriteString(fmt.Sprintf("    class %s {\n", c.Name))
		if c.Stereotype != "" {
			b.WriteString(fmt.Sprintf("        <<%s>>\n", c.Stereotype))
		}
		for _, a := range c.Attributes {
			b.WriteString(fmt.Sprintf("        %s\n", oneLine(a)))
		}
		for _, m := range c.Methods {
			b.WriteString(fmt.Sprintf("        %s\n", oneLine(m)))
		}
		b.WriteString("    }\n")
	}

	for _, r := range d.Relations {
		if !d.Has(diagram.KindClass, r.From) || !d.Has(diagram.KindClass, r.To) {
			continue
		}
		kind := r.Type
		if kind == "" {
			kind = diagram.RelAssociation
		}
		line := fmt.Sprintf("    %s %s %s", r.From, kind, r.To)
		if r.Label != "" {
			line += " : " + oneLine(r.Label)
		}
		b.WriteString(line + "\n")
	}

	return Output{Text: b.String()}
}
