package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/pkg/schema"
)

const (
	documentSchemaURL = "https://mermaidsync.dev/schemas/document.json"
	recordSchemaURL   = "https://mermaidsync.dev/schemas/record.json"
)

// documentSchemaJSON describes diagram.Document. Empty enum values mean the
// grammar default (rect, -->, ->>, right of).
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://mermaidsync.dev/schemas/document.json",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {
      "type": "string",
      "enum": ["flowchart", "sequenceDiagram", "classDiagram", "erDiagram", "gantt", "journey"]
    },
    "direction": { "type": "string", "enum": ["", "TD", "TB", "BT", "LR", "RL"] },
    "title": { "type": "string" },
    "date_format": { "type": "string" },
    "axis_format": { "type": "string" },
    "nodes": { "type": "array", "items": { "$ref": "#/$defs/node" } },
    "edges": { "type": "array", "items": { "$ref": "#/$defs/edge" } },
    "actors": { "type": "array", "items": { "$ref": "#/$defs/actor" } },
    "messages": { "type": "array", "items": { "$ref": "#/$defs/message" } },
    "notes": { "type": "array", "items": { "$ref": "#/$defs/note" } },
    "classes": { "type": "array", "items": { "$ref": "#/$defs/class" } },
    "relations": { "type": "array", "items": { "$ref": "#/$defs/relation" } },
    "entities": { "type": "array", "items": { "$ref": "#/$defs/entity" } },
    "er_relations": { "type": "array", "items": { "$ref": "#/$defs/er_relation" } },
    "sections": { "type": "array", "items": { "$ref": "#/$defs/section" } },
    "tasks": { "type": "array", "items": { "$ref": "#/$defs/task" } },
    "steps": { "type": "array", "items": { "$ref": "#/$defs/step" } }
  },
  "additionalProperties": false,
  "$defs": {
    "id": { "type": "string", "minLength": 1 },
    "bounds": {
      "type": "object",
      "properties": {
        "x": { "type": "number" },
        "y": { "type": "number" },
        "w": { "type": "number", "minimum": 0 },
        "h": { "type": "number", "minimum": 0 }
      },
      "additionalProperties": false
    },
    "node": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "text": { "type": "string" },
        "shape": { "type": "string", "enum": ["", "rect", "rounded", "circle", "diamond", "subgraph"] },
        "container_id": { "type": "string" },
        "bounds": { "$ref": "#/$defs/bounds" }
      },
      "additionalProperties": false
    },
    "edge": {
      "type": "object",
      "required": ["id", "from", "to"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "from": { "type": "string" },
        "to": { "type": "string" },
        "style": { "type": "string", "enum": ["", "-->", "---", "<-->", "-.->", "==>"] },
        "label": { "type": "string" }
      },
      "additionalProperties": false
    },
    "actor": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "display_name": { "type": "string" },
        "bounds": { "$ref": "#/$defs/bounds" }
      },
      "additionalProperties": false
    },
    "message": {
      "type": "object",
      "required": ["id", "from", "to"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "from": { "type": "string" },
        "to": { "type": "string" },
        "text": { "type": "string" },
        "arrow": { "type": "string", "enum": ["", "->>", "-->>", "->", "-->", "-)", "--)", "-x", "--x"] },
        "seq": { "type": "integer" },
        "bounds": { "$ref": "#/$defs/bounds" }
      },
      "additionalProperties": false
    },
    "note": {
      "type": "object",
      "required": ["id", "actor_id"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "text": { "type": "string" },
        "actor_id": { "type": "string" },
        "placement": { "type": "string", "enum": ["", "left of", "right of", "over"] },
        "seq": { "type": "integer" },
        "bounds": { "$ref": "#/$defs/bounds" }
      },
      "additionalProperties": false
    },
    "class": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": { "$ref": "#/$defs/id" },
        "stereotype": { "type": "string" },
        "attributes": { "type": "array", "items": { "type": "string" } },
        "methods": { "type": "array", "items": { "type": "string" } },
        "bounds": { "$ref": "#/$defs/bounds" }
      },
      "additionalProperties": false
    },
    "relation": {
      "type": "object",
      "required": ["id", "from", "to"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "from": { "type": "string" },
        "to": { "type": "string" },
        "type": {
          "type": "string",
          "enum": ["", "<|--", "--|>", "*--", "--*", "o--", "--o", "-->", "<--", "--", "..>", "<..", "..|>", "<|..", ".."]
        },
        "label": { "type": "string" }
      },
      "additionalProperties": false
    },
    "attribute": {
      "type": "object",
      "required": ["type", "name"],
      "properties": {
        "type": { "type": "string", "minLength": 1 },
        "name": { "type": "string", "minLength": 1 },
        "keys": { "type": "array", "items": { "type": "string", "enum": ["PK", "FK", "UK"] } },
        "comment": { "type": "string" }
      },
      "additionalProperties": false
    },
    "entity": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": { "$ref": "#/$defs/id" },
        "attributes": { "type": "array", "items": { "$ref": "#/$defs/attribute" } },
        "bounds": { "$ref": "#/$defs/bounds" }
      },
      "additionalProperties": false
    },
    "er_relation": {
      "type": "object",
      "required": ["id", "from", "to"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "from": { "type": "string" },
        "to": { "type": "string" },
        "cardinality": { "type": "string", "pattern": "^$|^(\\|o|\\|\\||\\}o|\\}\\|)(--|\\.\\.)(o\\||\\|\\||o\\{|\\|\\{)$" },
        "label": { "type": "string" }
      },
      "additionalProperties": false
    },
    "section": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "name": { "type": "string" },
        "bounds": { "$ref": "#/$defs/bounds" }
      },
      "additionalProperties": false
    },
    "task": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "name": { "type": "string" },
        "start": { "type": "string" },
        "duration": { "type": "string" },
        "milestone": { "type": "boolean" },
        "tags": { "type": "array", "items": { "type": "string", "enum": ["done", "active", "crit", "milestone"] } },
        "after": { "type": "array", "items": { "type": "string" } },
        "section": { "type": "string" },
        "bounds": { "$ref": "#/$defs/bounds" }
      },
      "additionalProperties": false
    },
    "step": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "name": { "type": "string" },
        "score": { "type": "integer" },
        "actors": { "type": "array", "items": { "type": "string" } },
        "section": { "type": "string" },
        "bounds": { "$ref": "#/$defs/bounds" }
      },
      "additionalProperties": false
    }
  }
}`

// recordSchemaJSON describes store.Record as persisted.
const recordSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://mermaidsync.dev/schemas/record.json",
  "type": "object",
  "required": ["version", "id", "name", "diagram_type", "document", "view"],
  "properties": {
    "version": { "const": "1.0" },
    "id": { "type": "string", "minLength": 1 },
    "name": { "type": "string", "minLength": 1 },
    "diagram_type": {
      "type": "string",
      "enum": ["flowchart", "sequenceDiagram", "classDiagram", "erDiagram", "gantt", "journey"]
    },
    "document": { "$ref": "document.json" },
    "view": {
      "type": "object",
      "required": ["zoom"],
      "properties": {
        "zoom": { "type": "number", "exclusiveMinimum": 0 },
        "pan_x": { "type": "number" },
        "pan_y": { "type": "number" }
      },
      "additionalProperties": false
    },
    "source": { "type": "string" },
    "created_at": { "type": "string", "format": "date-time" },
    "updated_at": { "type": "string", "format": "date-time" }
  },
  "additionalProperties": false
}`

// JSONSchemaValidator checks documents and persisted records against the
// embedded JSON Schemas (Draft 2020-12). It is safe for concurrent use.
type JSONSchemaValidator struct {
	documentSchema *jsonschema.Schema
	recordSchema   *jsonschema.Schema
}

// NewJSONSchemaValidator compiles the document and record schemas.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	for url, raw := range map[string]string{
		documentSchemaURL: documentSchemaJSON,
		recordSchemaURL:   recordSchemaJSON,
	} {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("unmarshal schema %s: %w", url, err)
		}
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", url, err)
		}
	}

	docSchema, err := c.Compile(documentSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	recSchema, err := c.Compile(recordSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}

	return &JSONSchemaValidator{documentSchema: docSchema, recordSchema: recSchema}, nil
}

// ValidateRecord validates the JSON form of a persisted record.
func (v *JSONSchemaValidator) ValidateRecord(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "record is not valid JSON").WithCause(err)
	}
	if err := v.recordSchema.Validate(doc); err != nil {
		return toSchemaError(err)
	}
	return nil
}

// ValidateDocument validates a document against the document schema.
func (v *JSONSchemaValidator) ValidateDocument(d *diagram.Document) error {
	if d == nil {
		return schema.NewError(schema.ErrCodeValidation, "document is nil")
	}
	doc, err := toJSONValue(d)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize document").WithCause(err)
	}
	if err := v.documentSchema.Validate(doc); err != nil {
		return toSchemaError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toSchemaError converts a jsonschema.ValidationError into a *schema.Error
// listing every leaf violation.
func toSchemaError(err error) *schema.Error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error messages
// with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
