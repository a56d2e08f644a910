package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/stockgame/internal/model"
)

func TestEveryDomainErrorHasDistinctCode(t *testing.T) {
	seen := map[string]error{}
	for _, m := range mapping {
		if prev, ok := seen[m.code]; ok {
			t.Fatalf("code %s used by both %v and %v", m.code, prev, m.err)
		}
		seen[m.code] = m.err
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("buy: %w", model.ErrInsufficientFunds))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeInsufficientFunds, body.Error.Code)
	assert.Equal(t, "insufficient funds", body.Error.Message)
}

func TestValidationMessagePassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("%w: price must be positive", model.ErrInvalidStock))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeInvalidStock, body.Error.Code)
	assert.Contains(t, body.Error.Message, "price must be positive")
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{model.ErrInvalidQuantity, http.StatusBadRequest},
		{model.ErrPlayerNotFound, http.StatusNotFound},
		{model.ErrStockNotFound, http.StatusNotFound},
		{model.ErrInsufficientQuantity, http.StatusUnprocessableEntity},
		{model.ErrAuthenticationFailed, http.StatusUnauthorized},
		{model.ErrTokenExpired, http.StatusUnauthorized},
		{model.ErrDuplicatePlayer, http.StatusConflict},
		{model.ErrDuplicateStockName, http.StatusConflict},
		{model.ErrForbidden, http.StatusForbidden},
		{NewInvalidRequestError("bad"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, Status(tt.err), "error %v", tt.err)
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("connection refused to 10.0.0.3"))

	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	assert.Contains(t, rec.Body.String(), CodeInternalError)
}
