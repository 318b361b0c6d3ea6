package grammar

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rendis/mermaidsync/internal/diagram"
)

// erPlaceholder is emitted for a document without entities so the renderer
// always receives a valid diagram.
const erPlaceholder = `    CUSTOMER {
        string name
        string email
    }
    ORDER {
        int id PK
        int customer_id FK
    }
    CUSTOMER ||--o{ ORDER : places
`

var erKeyToken = regexp.MustCompile(`\b(PK|FK|UK)\b`)

func generateER(d *diagram.Document) Output {
	var b strings.Builder
	writeFrontMatter(&b, d.Title)
	b.WriteString("erDiagram\n")

	if len(d.Entities) == 0 {
		b.WriteString(erPlaceholder)
		return Output{Text: b.String(), Placeholder: true}
	}

	for _, e := range d.Entities {
		b.WriteString(fmt.Sprintf("    %s {\n", e.Name))
		for _, a := range e.Attributes {
			if line, ok := erAttributeLine(a); ok {
				b.WriteString(fmt.Sprintf("        %s\n", line))
			}
		}
		b.WriteString("    }\n")
	}

	for _, r := range d.ERRelations {
		if !d.Has(diagram.KindEntity, r.From) || !d.Has(diagram.KindEntity, r.To) {
			continue
		}
		card := r.Cardinality
		if card == "" {
			card = diagram.DefaultCardinality
		}
		label := oneLine(r.Label)
		if label == "" {
			label = "relates"
		}
		if strings.ContainsAny(label, " \t") {
			label = `"` + strings.ReplaceAll(label, `"`, "'") + `"`
		}
		b.WriteString(fmt.Sprintf("    %s %s %s : %s\n", r.From, card, r.To, label))
	}

	return Output{Text: b.String()}
}

// erAttributeLine formats `type name [keys] ["comment"]`. Attributes without
// explicit keys have whole-word PK/FK/UK tokens lifted out of their text.
func erAttributeLine(a diagram.Attribute) (string, bool) {
	typ, name := oneLine(a.Type), oneLine(a.Name)
	keys := a.Keys
	if len(keys) == 0 {
		for _, tok := range erKeyToken.FindAllString(typ+" "+name, -1) {
			if !containsKey(keys, diagram.KeyRole(tok)) {
				keys = append(keys, diagram.KeyRole(tok))
			}
		}
		typ = oneLine(erKeyToken.ReplaceAllString(typ, ""))
		name = oneLine(erKeyToken.ReplaceAllString(name, ""))
	}
	if name == "" {
		name, typ = typ, ""
	}
	if name == "" {
		return "", false
	}
	if typ == "" {
		typ = "string"
	}

	line := strings.ReplaceAll(typ, " ", "_") + " " + strings.ReplaceAll(name, " ", "_")
	var roles []string
	for _, k := range keys {
		if k != diagram.KeyNone {
			roles = append(roles, string(k))
		}
	}
	if len(roles) > 0 {
		line += " " + strings.Join(roles, ", ")
	}
	if a.Comment != "" {
		line += ` "` + strings.ReplaceAll(oneLine(a.Comment), `"`, "'") + `"`
	}
	return line, true
}

func containsKey(keys []diagram.KeyRole, k diagram.KeyRole) bool {
	for _, existing := range keys {
		if existing == k {
			return true
		}
	}
	return false
}
