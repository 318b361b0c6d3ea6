package grammar

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rendis/mermaidsync/internal/diagram"
)

type nodeDef struct {
	text  string
	shape diagram.Shape
}

type flowchartParser struct {
	doc   *diagram.Document
	defs  map[string]nodeDef
	stack []string
}

var (
	flowSubgraphBracket = regexp.MustCompile(`^([^\s\["]+)\s*\[(.*)\]$`)
	flowNonWord         = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
	flowIcon            = regexp.MustCompile(`fa[bslr]?:fa-[\w-]+\s*`)
)

var flowchartRules = RuleSet[*flowchartParser]{
	{
		Name:    "header",
		Pattern: regexp.MustCompile(`^(?:flowchart|graph)(?:-elk)?(?:\s+(\S+))?\s*;?$`),
		Apply: func(p *flowchartParser, m []string) {
			switch dir := diagram.Direction(strings.ToUpper(m[1])); dir {
			case diagram.DirectionTD, diagram.DirectionTB, diagram.DirectionBT, diagram.DirectionLR, diagram.DirectionRL:
				p.doc.Direction = dir
			}
		},
	},
	{
		Name:    "subgraph",
		Pattern: regexp.MustCompile(`^subgraph(?:\s+(.*))?$`),
		Apply:   func(p *flowchartParser, m []string) { p.openSubgraph(strings.TrimSpace(m[1])) },
	},
	{
		Name:    "end",
		Pattern: regexp.MustCompile(`^end\s*;?$`),
		Apply: func(p *flowchartParser, _ []string) {
			if len(p.stack) > 0 {
				p.stack = p.stack[:len(p.stack)-1]
			}
		},
	},
	// A keyword followed by a shape, an arrow or `&` is a node that happens to
	// carry a keyword as its id, so it falls through to "statement".
	{
		Name:    "styling",
		Pattern: regexp.MustCompile(`^(?:classDef|class|style|linkStyle|click|direction)\s+[^\s\-=.~<>&|\[({:]`),
	},
	{
		Name:    "accessibility",
		Pattern: regexp.MustCompile(`^acc(?:Title|Descr)\s*[:{]`),
	},
	{
		Name:    "statement",
		Pattern: regexp.MustCompile(`^.+$`),
		Apply:   func(p *flowchartParser, m []string) { p.statement(scanFlowStatement(m[0])) },
	},
}

// parseFlowchart runs two passes: the first collects every inline node
// definition (the last one wins), the second builds structure and resolves
// bare references against that table.
func parseFlowchart(lines []string) *diagram.Document {
	p := &flowchartParser{doc: diagram.New(diagram.TypeFlowchart), defs: make(map[string]nodeDef)}

	for _, line := range lines {
		r, m := flowchartRules.Match(line)
		if r == nil || r.Name != "statement" {
			continue
		}
		for _, group := range scanFlowStatement(m[0]).groups {
			for _, ref := range group {
				if ref.defined {
					p.defs[ref.id] = nodeDef{text: ref.text, shape: ref.shape}
				}
			}
		}
	}

	for _, line := range lines {
		flowchartRules.Apply(p, line)
	}
	return p.doc
}

func (p *flowchartParser) container() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// openSubgraph accepts `id [title]`, `"title"`, a bare id or free text.
func (p *flowchartParser) openSubgraph(header string) {
	header = strings.TrimSuffix(header, ";")
	var id, title string
	switch m := flowSubgraphBracket.FindStringSubmatch(header); {
	case m != nil:
		id, title = m[1], nodeText(m[2])
	case strings.HasPrefix(header, `"`):
		title = decodeLabel(header)
		id = flowNonWord.ReplaceAllString(title, "_")
	case header != "":
		title = header
		id = flowNonWord.ReplaceAllString(header, "_")
	}
	if id == "" || id == "_" {
		id = p.nextSubgraphID()
	}
	if title == "" {
		title = id
	}

	if n, ok := p.doc.Node(id); ok {
		n.Shape = diagram.ShapeSubgraph
		n.Text = title
	} else {
		_ = p.doc.AddNode(&diagram.Node{ID: id, Text: title, Shape: diagram.ShapeSubgraph, ContainerID: p.container()})
	}
	p.stack = append(p.stack, id)
}

func (p *flowchartParser) nextSubgraphID() string {
	for i := 1; ; i++ {
		id := "subgraph" + strconv.Itoa(i)
		if !p.doc.Has(diagram.KindNode, id) {
			return id
		}
	}
}

// ensureNode registers id on first sight, in the subgraph currently open.
// Later mentions never move a node, so every container predates the nodes it
// holds and parsed containment stays acyclic.
func (p *flowchartParser) ensureNode(id string) {
	if p.doc.Has(diagram.KindNode, id) {
		return
	}
	n := &diagram.Node{ID: id, Text: id, Shape: diagram.ShapeRect}
	if def, ok := p.defs[id]; ok {
		n.Shape = def.shape
		if def.text != "" {
			n.Text = def.text
		}
	}
	if c := p.container(); c != id {
		n.ContainerID = c
	}
	_ = p.doc.AddNode(n)
}

func (p *flowchartParser) statement(st flowStatement) {
	for _, group := range st.groups {
		for _, ref := range group {
			p.ensureNode(ref.id)
		}
	}
	for i, a := range st.arrows {
		for _, from := range st.groups[i] {
			for _, to := range st.groups[i+1] {
				_ = p.doc.AddEdge(&diagram.Edge{From: from.id, To: to.id, Style: a.style, Label: a.label})
			}
		}
	}
}

// --- statement scanner ---

type flowRef struct {
	id      string
	text    string
	shape   diagram.Shape
	defined bool
}

type flowArrow struct {
	style diagram.EdgeKind
	label string
}

// flowStatement is `group (arrow group)*` where a group is `ref (& ref)*`.
// arrows[i] links groups[i] to groups[i+1].
type flowStatement struct {
	groups [][]flowRef
	arrows []flowArrow
}

func scanFlowStatement(line string) flowStatement {
	sc := &flowScanner{s: strings.TrimSuffix(strings.TrimSpace(line), ";")}
	var st flowStatement
	for {
		refs := sc.group()
		if len(refs) == 0 {
			break
		}
		st.groups = append(st.groups, refs)
		a, ok := sc.arrow()
		if !ok {
			break
		}
		st.arrows = append(st.arrows, a)
	}
	if len(st.groups) > 0 && len(st.arrows) >= len(st.groups) {
		st.arrows = st.arrows[:len(st.groups)-1]
	}
	return st
}

type flowScanner struct {
	s   string
	pos int
}

func (sc *flowScanner) rest() string { return sc.s[sc.pos:] }

func (sc *flowScanner) skipSpace() {
	for sc.pos < len(sc.s) && (sc.s[sc.pos] == ' ' || sc.s[sc.pos] == '\t') {
		sc.pos++
	}
}

func isIDRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (sc *flowScanner) idRuneAt(i int) bool {
	if i >= len(sc.s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(sc.s[i:])
	return isIDRune(r)
}

// id scans a node id. Dashes and dots are allowed inside an id only when
// followed by an id character, so they never swallow an arrow.
func (sc *flowScanner) id() string {
	start := sc.pos
	for sc.pos < len(sc.s) {
		r, size := utf8.DecodeRuneInString(sc.s[sc.pos:])
		switch {
		case isIDRune(r):
			sc.pos += size
		case (r == '-' || r == '.') && sc.pos > start && sc.idRuneAt(sc.pos+1):
			sc.pos += size
		default:
			return sc.s[start:sc.pos]
		}
	}
	return sc.s[start:]
}

var shapeBrackets = []struct {
	open, close string
	shape       diagram.Shape
}{
	{"(((", ")))", diagram.ShapeCircle},
	{"((", "))", diagram.ShapeCircle},
	{"([", "])", diagram.ShapeRounded},
	{"[[", "]]", diagram.ShapeRect},
	{"[(", ")]", diagram.ShapeRect},
	{"{{", "}}", diagram.ShapeDiamond},
	{"(", ")", diagram.ShapeRounded},
	{"[", "]", diagram.ShapeRect},
	{"{", "}", diagram.ShapeDiamond},
	{">", "]", diagram.ShapeRect},
}

// shape scans an inline shape definition directly after an id.
func (sc *flowScanner) shape() (string, diagram.Shape, bool) {
	rest := sc.rest()
	for _, b := range shapeBrackets {
		if !strings.HasPrefix(rest, b.open) {
			continue
		}
		body := rest[len(b.open):]

		// A quoted label may contain the closing bracket.
		if trimmed := strings.TrimLeft(body, " "); strings.HasPrefix(trimmed, `"`) {
			if q := strings.Index(trimmed[1:], `"`); q >= 0 {
				after := trimmed[q+2:]
				afterTrim := strings.TrimLeft(after, " ")
				if strings.HasPrefix(afterTrim, b.close) {
					consumed := len(rest) - len(afterTrim) + len(b.close)
					sc.pos += consumed
					return nodeText(trimmed[:q+2]), b.shape, true
				}
			}
		}

		end := strings.Index(body, b.close)
		if end < 0 {
			return "", "", false
		}
		sc.pos += len(b.open) + end + len(b.close)
		return nodeText(body[:end]), b.shape, true
	}
	return "", "", false
}

func (sc *flowScanner) classSuffix() {
	if !strings.HasPrefix(sc.rest(), ":::") {
		return
	}
	sc.pos += 3
	sc.id()
}

func (sc *flowScanner) group() []flowRef {
	var refs []flowRef
	for {
		sc.skipSpace()
		id := sc.id()
		if id == "" {
			return refs
		}
		ref := flowRef{id: id}
		if text, shape, ok := sc.shape(); ok {
			ref.text, ref.shape, ref.defined = text, shape, true
		}
		sc.classSuffix()
		sc.skipSpace()
		refs = append(refs, ref)
		if !strings.HasPrefix(sc.rest(), "&") {
			return refs
		}
		sc.pos++
	}
}

var (
	flowTextArrow   = regexp.MustCompile(`^(<?)(--|==|-\.)\s+([^\s\-=.>|&][^|]*?)\s*(-{2,}[>xo]?|={2,}[>xo]?|\.-+[>xo]?)`)
	flowSimpleArrow = regexp.MustCompile(`^(<?)(-{2,}|={2,}|-\.+-|~{3,})([>xo]?)(?:\s*\|([^|]*)\|)?`)
)

// arrow scans a link, either `-- text -->` or `-->|text|` form.
func (sc *flowScanner) arrow() (flowArrow, bool) {
	sc.skipSpace()
	rest := sc.rest()
	if m := flowTextArrow.FindStringSubmatch(rest); m != nil {
		sc.pos += len(m[0])
		closer := m[4]
		head := ""
		if last := closer[len(closer)-1]; last == '>' || last == 'x' || last == 'o' {
			head = string(last)
		}
		return flowArrow{style: edgeStyle(m[1], m[2]+closer, head), label: decodeLabel(m[3])}, true
	}
	if m := flowSimpleArrow.FindStringSubmatch(rest); m != nil {
		sc.pos += len(m[0])
		return flowArrow{style: edgeStyle(m[1], m[2], m[3]), label: decodeLabel(m[4])}, true
	}
	return flowArrow{}, false
}

// edgeStyle folds Mermaid's link variants onto the supported edge kinds.
func edgeStyle(left, body, head string) diagram.EdgeKind {
	switch {
	case left == "<" && head != "":
		return diagram.EdgeBidirectional
	case strings.Contains(body, "."):
		return diagram.EdgeDotted
	case strings.Contains(body, "="):
		return diagram.EdgeThick
	case head != "":
		return diagram.EdgeArrow
	default:
		return diagram.EdgeOpen
	}
}

// nodeText decodes a label and drops Font Awesome icon prefixes.
func nodeText(raw string) string {
	return strings.TrimSpace(flowIcon.ReplaceAllString(decodeLabel(raw), ""))
}
