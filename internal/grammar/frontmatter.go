package grammar

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter is the YAML block a Mermaid document may open with.
type frontMatter struct {
	Title  string         `yaml:"title,omitempty"`
	Config map[string]any `yaml:"config,omitempty"`
}

// splitFrontMatter separates a leading "---" YAML block from the body. A
// malformed block is kept out of the body but otherwise ignored.
func splitFrontMatter(text string) (frontMatter, string) {
	var fm frontMatter
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		return fm, text
	}
	lines := strings.Split(strings.ReplaceAll(trimmed, "\r\n", "\n"), "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return fm, text
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "---" {
			continue
		}
		_ = yaml.Unmarshal([]byte(strings.Join(lines[1:i], "\n")), &fm)
		return fm, strings.Join(lines[i+1:], "\n")
	}
	return fm, text
}

// writeFrontMatter emits a title block when the document has a title.
func writeFrontMatter(b *strings.Builder, title string) {
	if title == "" {
		return
	}
	data, err := yaml.Marshal(frontMatter{Title: title})
	if err != nil {
		return
	}
	b.WriteString("---\n")
	b.Write(data)
	b.WriteString("---\n")
}
