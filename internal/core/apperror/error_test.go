package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactories(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"validation", NewValidation("bad input"), CodeValidation, http.StatusBadRequest},
		{"not found", NewNotFound("invoice", "42"), CodeNotFound, http.StatusNotFound},
		{"duplicate number", NewDuplicateNumber("997"), CodeDuplicate, http.StatusConflict},
		{"duplicate entity", NewDuplicate("client", "nickname", "acme"), CodeDuplicate, http.StatusConflict},
		{"order violation", NewOrderViolation(time.Now(), time.Now(), "previous"), CodeOrderViolation, http.StatusUnprocessableEntity},
		{"configuration missing", NewConfigurationMissing("invoicing.start_number"), CodeConfigurationMissing, http.StatusInternalServerError},
		{"conflict", NewConflict("concurrent update"), CodeConflict, http.StatusConflict},
		{"internal", NewInternal(errors.New("boom")), CodeInternal, http.StatusInternalServerError},
		{"database", NewDatabase("insert", errors.New("down")), CodeDatabase, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.Equal(t, tt.wantStatus, GetHTTPStatus(tt.err))
		})
	}
}

func TestClassifiers_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create invoice: %w", NewOrderViolation(time.Now(), time.Now(), "previous"))

	assert.True(t, IsAppError(wrapped))
	assert.True(t, IsOrderViolation(wrapped))
	assert.False(t, IsNotFound(wrapped))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeOrderViolation, appErr.Code)
}

func TestClassifiers_PlainErrors(t *testing.T) {
	plain := errors.New("boom")

	assert.False(t, IsAppError(plain))
	assert.False(t, IsNotFound(plain))
	assert.False(t, IsDuplicate(plain))
	assert.False(t, IsConfigurationMissing(plain))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(plain))
}

func TestWithDetailAndCause(t *testing.T) {
	cause := errors.New("row lock timeout")
	err := NewConflict("transaction conflicted with a concurrent operation").
		WithDetail("number", "42").
		WithCause(cause)

	assert.Equal(t, "42", err.Details["number"])
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "caused by")
}

func TestOrderViolation_FormatsDates(t *testing.T) {
	candidate := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	neighbor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := NewOrderViolation(candidate, neighbor, "previous")
	assert.Equal(t, "2023-12-31", err.Details["candidate_date"])
	assert.Equal(t, "2024-01-01", err.Details["neighbor_date"])
	assert.Equal(t, "previous", err.Details["neighbor"])
}
