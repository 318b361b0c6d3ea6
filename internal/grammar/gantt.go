package grammar

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/rendis/mermaidsync/internal/diagram"
)

const (
	ganttDefaultTitle      = "Project Timeline"
	ganttDefaultDateFormat = "YYYY-MM-DD"
	ganttDefaultAxisFormat = "%m/%d"
	ganttDefaultSection    = "Development"
	ganttDefaultStart      = "2024-01-01"
	ganttDefaultDuration   = "3d"
	// ganttSectionReach is the vertical distance within which a task is
	// attributed to a section header.
	ganttSectionReach = 100
)

const ganttPlaceholder = `    section Planning
        Research :task1, 2024-01-01, 3d
        Design :task2, after task1, 5d
    section Development
        Implementation :task3, after task2, 7d
        Testing :milestone, 2024-01-16, 0d
`

var ganttSections = sectioner[*diagram.Task]{
	bounds: func(t *diagram.Task) diagram.Bounds { return t.Bounds },
	stored: func(t *diagram.Task) string { return t.Section },
	near: func(section, item diagram.Bounds) bool {
		return math.Abs(item.Y-section.Y) < ganttSectionReach
	},
	defaultName: ganttDefaultSection,
}

func generateGantt(d *diagram.Document) Output {
	var b strings.Builder
	b.WriteString("gantt\n")
	b.WriteString(fmt.Sprintf("    title %s\n", orDefault(oneLine(d.Title), ganttDefaultTitle)))
	b.WriteString(fmt.Sprintf("    dateFormat %s\n", orDefault(d.DateFormat, ganttDefaultDateFormat)))
	b.WriteString(fmt.Sprintf("    axisFormat %s\n\n", orDefault(d.AxisFormat, ganttDefaultAxisFormat)))

	if len(d.Tasks) == 0 && len(d.Sections) == 0 {
		b.WriteString(ganttPlaceholder)
		return Output{Text: b.String(), Placeholder: true}
	}

	buckets := ganttSections.split(d, d.Tasks)
	for _, bk := range buckets {
		b.WriteString(fmt.Sprintf("    section %s\n", sectionName(bk.name)))
		for _, t := range bk.items {
			b.WriteString(ganttTaskLine(t) + "\n")
		}
	}
	return Output{Text: b.String(), Groups: sectionGroups(buckets)}
}

// ganttTaskLine formats `name :[tags, ]id, start, duration`; milestones put
// the milestone tag first and always last 0d.
func ganttTaskLine(t *diagram.Task) string {
	var meta []string
	if t.Milestone {
		meta = append(meta, "milestone")
	}
	for _, tag := range t.Tags {
		if tag != "" && tag != "milestone" {
			meta = append(meta, tag)
		}
	}
	meta = append(meta, t.ID)

	switch {
	case len(t.After) > 0:
		meta = append(meta, "after "+strings.Join(t.After, " "))
	default:
		meta = append(meta, orDefault(t.Start, ganttDefaultStart))
	}
	if t.Milestone {
		meta = append(meta, "0d")
	} else {
		meta = append(meta, orDefault(t.Duration, ganttDefaultDuration))
	}

	name := strings.ReplaceAll(oneLine(t.Name), ":", "-")
	return fmt.Sprintf("        %s :%s", orDefault(name, "Task"), strings.Join(meta, ", "))
}

// --- parser ---

type ganttParser struct {
	doc     *diagram.Document
	current *diagram.Section
}

var ganttTags = map[string]bool{"done": true, "active": true, "crit": true, "milestone": true}

var ganttRules = RuleSet[*ganttParser]{
	{
		Name:    "title",
		Pattern: regexp.MustCompile(`^title\s+(.+)$`),
		Apply:   func(p *ganttParser, m []string) { p.doc.Title = strings.TrimSpace(m[1]) },
	},
	{
		Name:    "dateFormat",
		Pattern: regexp.MustCompile(`^dateFormat\s+(.+)$`),
		Apply:   func(p *ganttParser, m []string) { p.doc.DateFormat = strings.TrimSpace(m[1]) },
	},
	{
		Name:    "axisFormat",
		Pattern: regexp.MustCompile(`^axisFormat\s+(.+)$`),
		Apply:   func(p *ganttParser, m []string) { p.doc.AxisFormat = strings.TrimSpace(m[1]) },
	},
	{
		Name:    "section",
		Pattern: regexp.MustCompile(`^section\s+(.+)$`),
		Apply:   func(p *ganttParser, m []string) { p.current = addSection(p.doc, m[1]) },
	},
	{
		Name:    "directive",
		Pattern: regexp.MustCompile(`^(?:excludes|includes|todayMarker|tickInterval|weekday|inclusiveEndDates|topAxis|displayMode|accTitle|accDescr)\b`),
	},
	{
		Name:    "task",
		Pattern: regexp.MustCompile(`^(.+?)\s*:\s*(.+)$`),
		Apply:   func(p *ganttParser, m []string) { p.task(strings.TrimSpace(m[1]), m[2]) },
	},
}

func parseGantt(lines []string) *diagram.Document {
	p := &ganttParser{doc: diagram.New(diagram.TypeGantt)}
	for _, line := range lines {
		ganttRules.Apply(p, line)
	}
	return p.doc
}

// task resolves `[tags,] [[id,] start,] duration` metadata. A task with only
// a duration starts after the previous task.
func (p *ganttParser) task(name, meta string) {
	if p.current == nil {
		return
	}
	var fields []string
	for _, f := range strings.Split(meta, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}

	t := &diagram.Task{Name: name, Section: p.current.ID}
	for len(fields) > 0 && ganttTags[fields[0]] {
		if fields[0] == "milestone" {
			t.Milestone = true
		} else {
			t.Tags = append(t.Tags, fields[0])
		}
		fields = fields[1:]
	}

	var start string
	switch len(fields) {
	case 0:
	case 1:
		t.Duration = fields[0]
		if n := len(p.doc.Tasks); n > 0 {
			t.After = []string{p.doc.Tasks[n-1].ID}
		}
	case 2:
		start, t.Duration = fields[0], fields[1]
	default:
		t.ID, start, t.Duration = fields[0], fields[1], fields[2]
	}
	if rest, ok := strings.CutPrefix(start, "after "); ok {
		t.After = strings.Fields(rest)
	} else {
		t.Start = start
	}
	if t.ID != "" && p.doc.Has(diagram.KindTask, t.ID) {
		t.ID = ""
	}
	_ = p.doc.AddTask(t)
}

// addSection opens a new section; repeated headers yield distinct sections.
func addSection(d *diagram.Document, name string) *diagram.Section {
	s := &diagram.Section{Name: strings.TrimSpace(name)}
	_ = d.AddSection(s)
	return s
}

func sectionName(name string) string {
	return orDefault(oneLine(name), "Section")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
