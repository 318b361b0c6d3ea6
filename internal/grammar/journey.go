package grammar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rendis/mermaidsync/internal/diagram"
)

const (
	journeyDefaultTitle   = "User Journey"
	journeyDefaultSection = "User Experience"
	journeyDefaultScore   = 5
	journeyDefaultActor   = "User"
	// journeySectionReach is how far below a section header a step may sit
	// and still belong to it.
	journeySectionReach = 150
)

const journeyPlaceholder = `    section User Experience
        Discover: 3: User
        Research: 4: User
        Purchase: 5: User, Support
        Use Product: 4: User
`

var journeySections = sectioner[*diagram.Step]{
	bounds: func(s *diagram.Step) diagram.Bounds { return s.Bounds },
	stored: func(s *diagram.Step) string { return s.Section },
	near: func(section, item diagram.Bounds) bool {
		return item.Y > section.Y && item.Y < section.Y+journeySectionReach
	},
	defaultName: journeyDefaultSection,
}

func generateJourney(d *diagram.Document) Output {
	var b strings.Builder
	b.WriteString("journey\n")
	b.WriteString(fmt.Sprintf("    title %s\n\n", orDefault(oneLine(d.Title), journeyDefaultTitle)))

	if len(d.Steps) == 0 && len(d.Sections) == 0 {
		b.WriteString(journeyPlaceholder)
		return Output{Text: b.String(), Placeholder: true}
	}

	buckets := journeySections.split(d, d.Steps)
	for _, bk := range buckets {
		b.WriteString(fmt.Sprintf("    section %s\n", sectionName(bk.name)))
		if len(bk.items) == 0 {
			b.WriteString("        Default Step: 5: User\n")
			continue
		}
		for _, s := range bk.items {
			b.WriteString(journeyStepLine(s) + "\n")
		}
	}
	return Output{Text: b.String(), Groups: sectionGroups(buckets)}
}

func journeyStepLine(s *diagram.Step) string {
	score := s.Score
	if score <= 0 {
		score = journeyDefaultScore
	}
	var actors []string
	for _, a := range s.Actors {
		if a = strings.ReplaceAll(oneLine(a), ",", " "); a != "" {
			actors = append(actors, a)
		}
	}
	if len(actors) == 0 {
		actors = []string{journeyDefaultActor}
	}
	name := strings.ReplaceAll(oneLine(s.Name), ":", "-")
	return fmt.Sprintf("        %s: %d: %s", orDefault(name, "Step"), score, strings.Join(actors, ", "))
}

// --- parser ---

type journeyParser struct {
	doc     *diagram.Document
	current *diagram.Section
}

var journeyRules = RuleSet[*journeyParser]{
	{
		Name:    "title",
		Pattern: regexp.MustCompile(`^title\s+(.+)$`),
		Apply:   func(p *journeyParser, m []string) { p.doc.Title = strings.TrimSpace(m[1]) },
	},
	{
		Name:    "section",
		Pattern: regexp.MustCompile(`^section\s+(.+)$`),
		Apply:   func(p *journeyParser, m []string) { p.current = addSection(p.doc, m[1]) },
	},
	{
		Name:    "step",
		Pattern: regexp.MustCompile(`^(.+?)\s*:\s*(\d+)\s*(?::\s*(.*))?$`),
		Apply:   func(p *journeyParser, m []string) { p.step(m) },
	},
}

func parseJourney(lines []string) *diagram.Document {
	p := &journeyParser{doc: diagram.New(diagram.TypeJourney)}
	for _, line := range lines {
		journeyRules.Apply(p, line)
	}
	return p.doc
}

func (p *journeyParser) step(m []string) {
	if p.current == nil {
		return
	}
	score, err := strconv.Atoi(m[2])
	if err != nil {
		return
	}
	s := &diagram.Step{Name: strings.TrimSpace(m[1]), Score: score, Section: p.current.ID}
	for _, a := range strings.Split(m[3], ",") {
		if a = strings.TrimSpace(a); a != "" {
			s.Actors = append(s.Actors, a)
		}
	}
	_ = p.doc.AddStep(s)
}
