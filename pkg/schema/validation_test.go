package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_EmptyIsValid(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
	assert.Nil(t, r.ToError())
}

func TestValidationResult_AddError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/edges/0/to", "e1", ErrCodeReference, "edge target Z does not exist")

	assert.False(t, r.Valid())
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "/edges/0/to", r.Errors[0].Path)
	assert.Equal(t, "e1", r.Errors[0].ElementID)
	assert.Equal(t, ErrCodeReference, r.Errors[0].Code)
	assert.Equal(t, SeverityError, r.Errors[0].Severity)
}

func TestValidationResult_WarningsStayValid(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("/nodes", "", ErrCodeValidation, "document is empty")

	assert.True(t, r.Valid())
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, SeverityWarning, r.Warnings[0].Severity)
}

func TestValidationResult_Merge(t *testing.T) {
	r1 := &ValidationResult{}
	r1.AddError("/", "", ErrCodeValidation, "err1")

	r2 := &ValidationResult{}
	r2.AddError("/relations/0", "r1", ErrCodeReference, "err2")
	r2.AddWarning("/", "", ErrCodeValidation, "warn")

	r1.Merge(r2)
	r1.Merge(nil)

	assert.Len(t, r1.Errors, 2)
	assert.Len(t, r1.Warnings, 1)
}

func TestValidationResult_ToError_Single(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/messages/2/from", "m3", ErrCodeReference, "unknown actor Bob")

	err := r.ToError()
	require.Error(t, err)

	sErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrCodeReference, sErr.Code)
	assert.Equal(t, "m3", sErr.ElementID)
	assert.Equal(t, "unknown actor Bob", sErr.Message)
	assert.Equal(t, 1, sErr.Details["error_count"])
	assert.True(t, HasCode(err, ErrCodeReference))
}

func TestValidationResult_ToError_Multiple(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/", "", ErrCodeValidation, "err1")
	r.AddError("/", "", ErrCodeValidation, "err2")

	err := r.ToError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors")
}

func TestErrorFormatting(t *testing.T) {
	err := NewErrorf(ErrCodeRenderFailed, "mmdc exited with %d", 1)
	assert.Equal(t, "[RENDER_FAILED] mmdc exited with 1", err.Error())

	err = NewError(ErrCodeNotFound, "no such node").WithElement("A")
	assert.Equal(t, "[NOT_FOUND] element A: no such node", err.Error())
}
