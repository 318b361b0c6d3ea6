package grammar

import (
	"regexp"
	"strings"
)

// Rule is one line pattern of a grammar together with the action run when a
// line matches it.
type Rule[S any] struct {
	Name    string
	Pattern *regexp.Regexp
	Apply   func(state S, m []string)
}

// RuleSet is an ordered rule table. The first matching rule wins, so the
// order of the table is the tie-break between overlapping patterns.
type RuleSet[S any] []Rule[S]

// Match returns the first rule matching line and its submatches.
func (rs RuleSet[S]) Match(line string) (*Rule[S], []string) {
	for i := range rs {
		if m := rs[i].Pattern.FindStringSubmatch(line); m != nil {
			return &rs[i], m
		}
	}
	return nil, nil
}

// Apply runs the first matching rule. Lines matching nothing are ignored and
// reported as false.
func (rs RuleSet[S]) Apply(state S, line string) bool {
	r, m := rs.Match(line)
	if r == nil {
		return false
	}
	if r.Apply != nil {
		r.Apply(state, m)
	}
	return true
}

// Names lists the rule names in priority order.
func (rs RuleSet[S]) Names() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

// SplitLines splits text into trimmed lines, dropping blank lines and %%
// comments (which also covers %%{init}%% directives).
func SplitLines(text string) []string {
	var out []string
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// unquote strips one pair of surrounding double quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

var labelEntities = strings.NewReplacer("#quot;", `"`, "#124;", "|", "<br/>", "\n", "<br>", "\n", "#35;", "#")

// decodeLabel reverses escapeLabel and drops surrounding quotes.
func decodeLabel(s string) string {
	return strings.TrimSpace(labelEntities.Replace(unquote(s)))
}

var nodeLabelEscaper = strings.NewReplacer(`"`, "#quot;", "\n", "<br/>")

// escapeLabel makes text safe inside a quoted node or subgraph label.
func escapeLabel(s string) string {
	return nodeLabelEscaper.Replace(s)
}

var edgeLabelEscaper = strings.NewReplacer(`"`, "#quot;", "|", "#124;", "\n", "<br/>")

// escapeEdgeLabel makes text safe between the pipes of an edge label.
func escapeEdgeLabel(s string) string {
	return edgeLabelEscaper.Replace(s)
}

// oneLine flattens text for grammars without an escape syntax.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
