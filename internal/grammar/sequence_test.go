package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/diagram"
)

func TestSequenceParse(t *testing.T) {
	d := Parse(`sequenceDiagram
    autonumber
    participant A as Alice
    actor B
    A->>+B: Hello Bob
    B-->>-A: Hi
    A-)C: fire and forget
    Note right of B: thinking
    note over A,C: spanning
    loop Every minute
        C-xA: lost
    end`)

	ids := make([]string, 0, len(d.Actors))
	for _, a := range d.Actors {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"A", "B", "C"}, ids, "undeclared actors are registered in first-seen order")
	assert.Equal(t, "Alice", d.Actors[0].DisplayName)

	require.Len(t, d.Messages, 4)
	assert.Equal(t, diagram.ArrowSync, d.Messages[0].Arrow)
	assert.Equal(t, "Hello Bob", d.Messages[0].Text)
	assert.Equal(t, diagram.ArrowReply, d.Messages[1].Arrow)
	assert.Equal(t, diagram.ArrowAsync, d.Messages[2].Arrow)
	assert.Equal(t, diagram.ArrowLost, d.Messages[3].Arrow)

	require.Len(t, d.Notes, 2)
	assert.Equal(t, diagram.PlacementRight, d.Notes[0].Placement)
	assert.Equal(t, "B", d.Notes[0].ActorID)
	assert.Equal(t, diagram.PlacementOver, d.Notes[1].Placement)
	assert.Equal(t, "A", d.Notes[1].ActorID)

	assert.Less(t, d.Messages[2].Seq, d.Notes[0].Seq)
	assert.Less(t, d.Notes[1].Seq, d.Messages[3].Seq)
}

func TestSequenceGenerateWithoutGeometry(t *testing.T) {
	d := diagram.New(diagram.TypeSequence)
	require.NoError(t, d.AddActor(&diagram.Actor{ID: "A", DisplayName: "Alice"}))
	require.NoError(t, d.AddActor(&diagram.Actor{ID: "B"}))
	require.NoError(t, d.AddMessage(&diagram.Message{From: "A", To: "B", Text: "hello"}))
	require.NoError(t, d.AddNote(&diagram.Note{ActorID: "B", Text: "thinking", Placement: diagram.PlacementOver}))
	require.NoError(t, d.AddMessage(&diagram.Message{From: "B", To: "A", Arrow: diagram.ArrowReply}))
	require.NoError(t, d.AddMessage(&diagram.Message{From: "A", To: "Ghost", Text: "dropped"}))

	want := "sequenceDiagram\n" +
		"    participant A as Alice\n" +
		"    participant B\n" +
		"    A->>B: hello\n" +
		"    Note over B: thinking\n" +
		"    B-->>A:\n"
	assert.Equal(t, want, Generate(d).Text)
}

func TestSequenceGenerateByGeometry(t *testing.T) {
	d := diagram.New(diagram.TypeSequence)
	require.NoError(t, d.AddActor(&diagram.Actor{ID: "Server", Bounds: diagram.Bounds{X: 400, Y: 50, W: 120, H: 60}}))
	require.NoError(t, d.AddActor(&diagram.Actor{ID: "Client", Bounds: diagram.Bounds{X: 100, Y: 50, W: 120, H: 60}}))
	require.NoError(t, d.AddMessage(&diagram.Message{From: "Server", To: "Client", Text: "second", Bounds: diagram.Bounds{X: 100, Y: 300, W: 300, H: 20}}))
	require.NoError(t, d.AddMessage(&diagram.Message{From: "Client", To: "Server", Text: "first", Bounds: diagram.Bounds{X: 100, Y: 200, W: 300, H: 20}}))
	require.NoError(t, d.AddNote(&diagram.Note{ActorID: "Client", Text: "near server", Bounds: diagram.Bounds{X: 450, Y: 250, W: 100, H: 40}}))
	require.NoError(t, d.AddNote(&diagram.Note{ActorID: "Server", Text: "left of client", Bounds: diagram.Bounds{X: 20, Y: 350, W: 100, H: 40}}))

	want := "sequenceDiagram\n" +
		"    participant Client\n" +
		"    participant Server\n" +
		"    Client->>Server: first\n" +
		"    Note right of Server: near server\n" +
		"    Server->>Client: second\n" +
		"    Note left of Client: left of client\n"
	assert.Equal(t, want, Generate(d).Text)
}

func TestSequenceRoundTrip(t *testing.T) {
	text := "sequenceDiagram\n" +
		"    participant A as Alice\n" +
		"    participant B\n" +
		"    A->>B: hello\n" +
		"    Note left of A: waves\n" +
		"    B--xA: gone\n"
	assert.Equal(t, text, Generate(Parse(text)).Text)
}
