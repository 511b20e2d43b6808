package apperr

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"validation", Validation("day of month %d out of range", 42), KindValidation},
		{"not_found", NotFound("execution %s not found", "x"), KindNotFound},
		{"conflict", Conflict("execution is completed"), KindConflict},
		{"external", ExternalDependency(errors.New("dial tcp"), "loading machine"), KindExternalDependency},
		{"fields", Fields(FieldErrors{"template_id": "Template is required"}), KindValidation},
		{"wrapped_std", fmt.Errorf("creating execution: %w", NotFound("template missing")), KindNotFound},
		{"wrapped_crdb", errors.Wrap(Conflict("claim lost"), "tick"), KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ExternalDependency(errors.New("timeout"), "template service")))
	assert.False(t, Retryable(NotFound("machine not found")))
	assert.False(t, Retryable(nil))
}

func TestExternalDependency_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ExternalDependency(cause, "loading template %s", "abc")

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "loading template abc")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFields(t *testing.T) {
	assert.NoError(t, Fields(nil))
	assert.NoError(t, Fields(FieldErrors{}))

	err := fmt.Errorf("create plan: %w", Fields(FieldErrors{
		"period":         "Invalid period",
		"interval_value": "Must be at least 1",
	}))

	fields := FieldsOf(err)
	assert.Equal(t, "Invalid period", fields["period"])
	assert.Equal(t, "Must be at least 1", fields["interval_value"])
	assert.Contains(t, err.Error(), "interval_value: Must be at least 1; period: Invalid period")
	assert.Nil(t, FieldsOf(NotFound("nope")))
}
