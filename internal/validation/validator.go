package validation

import (
	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// Validator checks diagram documents and persisted records.
type Validator interface {
	Validate(d *diagram.Document) *schema.ValidationResult
	ValidateRecord(data []byte) error
}

// DocumentValidator orchestrates the three-stage validation pipeline:
// 1. Structural (JSON Schema)
// 2. Semantic (references, duplicate ids, foreign elements)
// 3. Task dependencies (gantt "after" cycles)
type DocumentValidator struct {
	jsonSchema *JSONSchemaValidator
}

// NewDocumentValidator creates a DocumentValidator.
func NewDocumentValidator() (*DocumentValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &DocumentValidator{jsonSchema: jsv}, nil
}

// Validate runs the full pipeline and returns an aggregated result.
// Structural errors short-circuit: the later stages are skipped.
func (dv *DocumentValidator) Validate(d *diagram.Document) *schema.ValidationResult {
	if d == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", "", schema.ErrCodeValidation, "document is nil")
		return r
	}

	result := validateStructural(dv.jsonSchema, d)
	if !result.Valid() {
		return result
	}

	result.Merge(validateSemantic(d))

	// Dependency analysis needs intact references.
	if result.Valid() {
		result.Merge(validateTaskDependencies(d))
	}
	return result
}

// ValidateRecord delegates to the JSON Schema stage. It satisfies
// store.Validator.
func (dv *DocumentValidator) ValidateRecord(data []byte) error {
	return dv.jsonSchema.ValidateRecord(data)
}

// validateStructural wraps JSONSchemaValidator.ValidateDocument, converting
// its error output into a ValidationResult.
func validateStructural(v *JSONSchemaValidator, d *diagram.Document) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	err := v.ValidateDocument(d)
	if err == nil {
		return result
	}

	sErr, ok := err.(*schema.Error)
	if !ok {
		result.AddError("/", "", schema.ErrCodeValidation, err.Error())
		return result
	}

	if sErr.Details != nil {
		if violations, ok := sErr.Details["violations"].([]string); ok {
			for _, v := range violations {
				result.AddError("/", "", schema.ErrCodeValidation, v)
			}
			return result
		}
	}
	result.AddError("/", "", schema.ErrCodeValidation, sErr.Message)
	return result
}
