package validation

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/grammar"
	"github.com/rendis/mermaidsync/pkg/schema"
)

var sampleSources = map[diagram.Type]string{
	diagram.TypeFlowchart: "flowchart LR\n    A[Start] --> B{Check}\n    B -.->|no| C((Stop))\n    subgraph s1 [Group]\n        C\n    end",
	diagram.TypeSequence:  "sequenceDiagram\n    participant A as Alice\n    A->>B: hello\n    B-->>A: hi\n    Note over A: waves",
	diagram.TypeClass:     "classDiagram\n    class Animal {\n        <<abstract>>\n        +String name\n        +eat()\n    }\n    Animal <|-- Dog : extends",
	diagram.TypeER:        "erDiagram\n    CUSTOMER ||--o{ ORDER : places\n    ORDER {\n        int id PK\n        int customer_id FK \"owner\"\n    }",
	diagram.TypeGantt:     "gantt\n    title Plan\n    dateFormat YYYY-MM-DD\n    section Build\n        Code :crit, c1, 2024-01-01, 3d\n        Ship :milestone, m1, 2024-01-05, 0d\n        Docs :2d",
	diagram.TypeJourney:   "journey\n    title Day\n    section Morning\n        Coffee: 5: Me, Cat\n        Commute: 2: Me",
}

func TestNewJSONSchemaValidator(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)
	assert.NotNil(t, v.documentSchema)
	assert.NotNil(t, v.recordSchema)
}

func TestValidateDocument_ParsedSamples(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	for typ, src := range sampleSources {
		t.Run(string(typ), func(t *testing.T) {
			d := grammar.Parse(src)
			require.Equal(t, typ, d.Type)
			assert.NoError(t, v.ValidateDocument(d))
		})
	}
}

func TestValidateDocument_Nil(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	err = v.ValidateDocument(nil)
	require.Error(t, err)
	sErr, ok := err.(*schema.Error)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeValidation, sErr.Code)
	assert.Contains(t, sErr.Message, "nil")
}

func TestValidateDocument_BadEnum(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	d := diagram.New(diagram.TypeFlowchart)
	require.NoError(t, d.AddNode(&diagram.Node{ID: "A", Shape: "hexagon"}))

	err = v.ValidateDocument(d)
	require.Error(t, err)
	sErr := err.(*schema.Error)
	assert.Equal(t, schema.ErrCodeValidation, sErr.Code)
	assert.Contains(t, sErr.Message, "/nodes/0/shape")
}

func TestValidateDocument_MultipleViolations(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	d := diagram.New(diagram.TypeER)
	require.NoError(t, d.AddEntity(&diagram.Entity{Name: "A", Bounds: diagram.Bounds{W: -1}}))
	require.NoError(t, d.AddERRelation(&diagram.ERRelation{From: "A", To: "A", Cardinality: "<>--<>"}))

	err = v.ValidateDocument(d)
	require.Error(t, err)
	sErr := err.(*schema.Error)
	assert.Contains(t, sErr.Message, "validation failed with")
	violations, ok := sErr.Details["violations"].([]string)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(violations), 2)
}

func validRecordJSON(t *testing.T) map[string]any {
	t.Helper()
	doc, err := json.Marshal(grammar.Parse(sampleSources[diagram.TypeFlowchart]))
	require.NoError(t, err)
	var docVal any
	require.NoError(t, json.Unmarshal(doc, &docVal))
	return map[string]any{
		"version":      "1.0",
		"id":           "rec-1",
		"name":         "checkout",
		"diagram_type": "flowchart",
		"document":     docVal,
		"view":         map[string]any{"zoom": 1.25, "pan_x": 10, "pan_y": -4},
		"created_at":   "2024-05-01T10:00:00Z",
		"updated_at":   "2024-05-01T10:05:00.123456Z",
	}
}

func TestValidateRecord(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(m map[string]any)
		wantErr string
	}{
		{name: "valid", mutate: func(map[string]any) {}},
		{name: "wrong version", mutate: func(m map[string]any) { m["version"] = "2.0" }, wantErr: "/version"},
		{name: "missing document", mutate: func(m map[string]any) { delete(m, "document") }, wantErr: "document"},
		{name: "zero zoom", mutate: func(m map[string]any) { m["view"] = map[string]any{"zoom": 0} }, wantErr: "/view/zoom"},
		{name: "unknown type", mutate: func(m map[string]any) { m["diagram_type"] = "pie" }, wantErr: "/diagram_type"},
		{name: "bad timestamp", mutate: func(m map[string]any) { m["created_at"] = "yesterday" }, wantErr: "/created_at"},
		{name: "extra field", mutate: func(m map[string]any) { m["owner"] = "me" }, wantErr: "owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validRecordJSON(t)
			tt.mutate(m)
			data, err := json.Marshal(m)
			require.NoError(t, err)

			err = v.ValidateRecord(data)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateRecord_NotJSON(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)
	err = v.ValidateRecord([]byte("{not json"))
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestValidateRecord_Concurrent(t *testing.T) {
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)
	data, err := json.Marshal(validRecordJSON(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, v.ValidateRecord(data))
		}()
	}
	wg.Wait()
}
