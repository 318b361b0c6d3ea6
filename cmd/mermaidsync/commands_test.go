package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/store"
	"github.com/rendis/mermaidsync/pkg/schema"
)

const sampleFlow = "flowchart LR\n    A[Start] --> B{Check}\n    B -->|yes| C((Done))\n"

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MERMAIDSYNC_LAYOUT", "grid")
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.toml")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDetectCmd(t *testing.T) {
	out, err := runCLI(t, "erDiagram\n    A ||--o{ B : has\n", "detect")
	require.NoError(t, err)
	assert.Equal(t, "erDiagram\n", out)
}

func TestParseCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkout.mmd")
	require.NoError(t, os.WriteFile(path, []byte(sampleFlow), 0o600))

	out, err := runCLI(t, "", "parse", "--layout", path)
	require.NoError(t, err)

	var rec store.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, store.RecordVersion, rec.Version)
	assert.Equal(t, "checkout", rec.Name)
	assert.Equal(t, diagram.TypeFlowchart, rec.DiagramType)
	assert.NotEmpty(t, rec.ID)
	require.Len(t, rec.Document.Nodes, 3)
	for _, n := range rec.Document.Nodes {
		assert.False(t, n.Bounds.Empty(), n.ID)
	}
	assert.Contains(t, rec.Source, "B -->|yes| C")
}

func TestParseCmdForcedType(t *testing.T) {
	out, err := runCLI(t, "    Alice->>Bob: hi\n", "parse", "--type", "sequenceDiagram", "--name", "chat")
	require.NoError(t, err)

	var rec store.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "chat", rec.Name)
	assert.Equal(t, diagram.TypeSequence, rec.DiagramType)
	assert.Len(t, rec.Document.Messages, 1)
}

func TestParseCmdBadType(t *testing.T) {
	_, err := runCLI(t, "pie\n", "parse", "--type", "pie")
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestGenerateCmdRoundTrip(t *testing.T) {
	recJSON, err := runCLI(t, sampleFlow, "parse")
	require.NoError(t, err)

	var rec store.Record
	require.NoError(t, json.Unmarshal([]byte(recJSON), &rec))

	out, err := runCLI(t, recJSON, "generate")
	require.NoError(t, err)
	assert.Equal(t, rec.Source, out)

	again, err := runCLI(t, out, "parse")
	require.NoError(t, err)
	var rec2 store.Record
	require.NoError(t, json.Unmarshal([]byte(again), &rec2))
	assert.Equal(t, rec.Source, rec2.Source)
}

func TestGenerateCmdBareDocument(t *testing.T) {
	out, err := runCLI(t, `{"type":"flowchart","nodes":[{"id":"A","text":"Start","shape":"rect"}]}`, "generate")
	require.NoError(t, err)
	assert.Equal(t, "flowchart TD\n    A[\"Start\"]\n", out)
}

func TestQueryCmd(t *testing.T) {
	out, err := runCLI(t, sampleFlow, "query", `kind == "node" && el.shape == "diamond"`)
	require.NoError(t, err)

	var res struct {
		Engine  string `json:"engine"`
		Matches []struct {
			ID string `json:"id"`
		} `json:"matches"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "cel", res.Engine)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "B", res.Matches[0].ID)

	out, err = runCLI(t, sampleFlow, "query", "--engine", "jq", ".edges | length")
	require.NoError(t, err)
	assert.Contains(t, out, `"values": [`)
	assert.Contains(t, out, "2")
}

func TestQueryCmdBadExpression(t *testing.T) {
	_, err := runCLI(t, sampleFlow, "query", "kind ==")
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeQuery))
}

func TestRenderCmdASCII(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "flow.mmd")
	dst := filepath.Join(dir, "flow.txt")
	require.NoError(t, os.WriteFile(src, []byte(sampleFlow), 0o600))

	_, err := runCLI(t, "", "render", "--renderer", "ascii", "-o", dst, src)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Start")
}

func TestRenderCmdUnknownRenderer(t *testing.T) {
	_, err := runCLI(t, sampleFlow, "render", "--renderer", "paint")
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "mermaidsync "+version))
}

func TestDecodeModel(t *testing.T) {
	d, err := decodeModel([]byte("gantt\n    title Plan\n"))
	require.NoError(t, err)
	assert.Equal(t, diagram.TypeGantt, d.Type)

	d, err = decodeModel([]byte(`{"version":"1.0","document":{"type":"journey"}}`))
	require.NoError(t, err)
	assert.Equal(t, diagram.TypeJourney, d.Type)

	_, err = decodeModel([]byte(`{"type":"pie"}`))
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))

	_, err = decodeModel([]byte(`{"type":`))
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}
