package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/diagram"
)

func TestJourneyPlaceholder(t *testing.T) {
	out := Generate(diagram.New(diagram.TypeJourney))
	assert.True(t, out.Placeholder)
	assert.Equal(t, "journey\n    title User Journey\n\n"+journeyPlaceholder, out.Text)

	back := Parse(out.Text)
	require.Len(t, back.Steps, 4)
	assert.Equal(t, []string{"User", "Support"}, back.Steps[2].Actors)
	assert.Equal(t, 5, back.Steps[2].Score)
}

func TestJourneyParse(t *testing.T) {
	d := Parse(`journey
    title My working day
    Too early: 1: Me
    section Go to work
      Make tea: 5: Me
      Go upstairs: 3: Me, Cat
    section Go home
      Sit down: 2`)

	assert.Equal(t, "My working day", d.Title)
	require.Len(t, d.Sections, 2)
	require.Len(t, d.Steps, 3, "steps before any section are dropped")

	assert.Equal(t, "Make tea", d.Steps[0].Name)
	assert.Equal(t, 5, d.Steps[0].Score)
	assert.Equal(t, d.Sections[0].ID, d.Steps[0].Section)
	assert.Equal(t, []string{"Me", "Cat"}, d.Steps[1].Actors)
	assert.Empty(t, d.Steps[2].Actors)
	assert.Equal(t, d.Sections[1].ID, d.Steps[2].Section)

	want := "journey\n    title My working day\n\n" +
		"    section Go to work\n" +
		"        Make tea: 5: Me\n" +
		"        Go upstairs: 3: Me, Cat\n" +
		"    section Go home\n" +
		"        Sit down: 2: User\n"
	assert.Equal(t, want, Generate(d).Text)
}

func TestJourneyEmptySectionGetsDefaultStep(t *testing.T) {
	d := diagram.New(diagram.TypeJourney)
	require.NoError(t, d.AddSection(&diagram.Section{Name: "Onboarding"}))

	out := Generate(d)
	assert.False(t, out.Placeholder)
	assert.Equal(t, "journey\n    title User Journey\n\n    section Onboarding\n        Default Step: 5: User\n", out.Text)
}

func TestJourneySectionsByProximity(t *testing.T) {
	d := diagram.New(diagram.TypeJourney)
	require.NoError(t, d.AddSection(&diagram.Section{ID: "s1", Name: "Shop", Bounds: diagram.Bounds{X: 50, Y: 100, W: 300, H: 30}}))
	require.NoError(t, d.AddStep(&diagram.Step{ID: "above", Name: "Browse", Score: 4, Bounds: diagram.Bounds{X: 100, Y: 90, W: 120, H: 60}}))
	require.NoError(t, d.AddStep(&diagram.Step{ID: "b", Name: "Pay", Score: 2, Bounds: diagram.Bounds{X: 300, Y: 200, W: 120, H: 60}}))
	require.NoError(t, d.AddStep(&diagram.Step{ID: "a", Name: "Pick", Bounds: diagram.Bounds{X: 100, Y: 200, W: 120, H: 60}}))

	out := Generate(d)
	want := "journey\n    title User Journey\n\n" +
		"    section User Experience\n" +
		"        Browse: 4: User\n" +
		"    section Shop\n" +
		"        Pick: 5: User\n" +
		"        Pay: 2: User\n"
	assert.Equal(t, want, out.Text)
	require.Len(t, out.Groups, 2)
	assert.Equal(t, []string{"a", "b"}, out.Groups[1].Members)
}
