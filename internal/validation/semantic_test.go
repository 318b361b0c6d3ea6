package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/grammar"
	"github.com/rendis/mermaidsync/pkg/schema"
)

func TestSemantic_ParsedSamplesClean(t *testing.T) {
	for typ, src := range sampleSources {
		t.Run(string(typ), func(t *testing.T) {
			result := validateSemantic(grammar.Parse(src))
			assert.True(t, result.Valid(), "%+v", result.Errors)
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestSemantic_DanglingEdge(t *testing.T) {
	d := diagram.New(diagram.TypeFlowchart)
	require.NoError(t, d.AddNode(&diagram.Node{ID: "A"}))
	require.NoError(t, d.AddEdge(&diagram.Edge{ID: "e1", From: "A", To: "Z"}))

	result := validateSemantic(d)
	require.Len(t, result.Errors, 1)
	issue := result.Errors[0]
	assert.Equal(t, schema.ErrCodeReference, issue.Code)
	assert.Equal(t, "/edges/0/to", issue.Path)
	assert.Equal(t, "e1", issue.ElementID)
	assert.Contains(t, issue.Message, `"Z" does not exist`)
}

func TestSemantic_SequenceReferences(t *testing.T) {
	d := diagram.New(diagram.TypeSequence)
	require.NoError(t, d.AddActor(&diagram.Actor{ID: "A"}))
	require.NoError(t, d.AddMessage(&diagram.Message{ID: "m1", From: "A", To: "Bob"}))
	require.NoError(t, d.AddNote(&diagram.Note{ID: "n1", ActorID: "Carol"}))

	result := validateSemantic(d)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "/messages/0/to", result.Errors[0].Path)
	assert.Equal(t, "/notes/0/actor_id", result.Errors[1].Path)
}

func TestSemantic_ContainerNotSubgraph(t *testing.T) {
	d := diagram.New(diagram.TypeFlowchart)
	require.NoError(t, d.AddNode(&diagram.Node{ID: "A"}))
	require.NoError(t, d.AddNode(&diagram.Node{ID: "B", ContainerID: "A"}))

	result := validateSemantic(d)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "/nodes/1/container_id", result.Errors[0].Path)
	assert.Contains(t, result.Errors[0].Message, "is not a subgraph")
}

func TestSemantic_DuplicateIDsFromJSON(t *testing.T) {
	var d diagram.Document
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "classDiagram",
		"classes": [{"name": "Dog"}, {"name": "Dog"}]
	}`), &d))

	result := validateSemantic(&d)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.ErrCodeValidation, result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Message, `duplicate class id "Dog"`)
}

func TestSemantic_Warnings(t *testing.T) {
	d := diagram.New(diagram.TypeJourney)
	require.NoError(t, d.AddSection(&diagram.Section{ID: "s1", Name: "Morning"}))
	require.NoError(t, d.AddStep(&diagram.Step{ID: "st1", Name: "Coffee", Score: 9, Section: "s1"}))
	require.NoError(t, d.AddStep(&diagram.Step{ID: "st2", Name: "Orphan", Score: 3}))
	require.NoError(t, d.AddActor(&diagram.Actor{ID: "Stray"}))

	result := validateSemantic(d)
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 3)
	assert.Contains(t, result.Warnings[0].Message, "1 actor element(s) are ignored by journey generation")
	assert.Equal(t, "/steps/0/score", result.Warnings[1].Path)
	assert.Equal(t, "/steps/1/section", result.Warnings[2].Path)
}

func TestSemantic_EmptyDocumentWarns(t *testing.T) {
	result := validateSemantic(diagram.New(diagram.TypeER))
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "placeholder")
}
