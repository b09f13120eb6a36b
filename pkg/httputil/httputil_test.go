package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
	"github.com/muhammadjehanzaib/sultan-store/pkg/logger"
	"github.com/muhammadjehanzaib/sultan-store/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, Response{Data: map[string]int{"stock": 7}})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":{"stock":7}}`, rec.Body.String())
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/variants/v1/adjust", nil)

	WriteError(rec, req, fmt.Errorf("adjust: %w", apperrors.NotFound("variant", "v1")), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "v1")
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{apperrors.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{fmt.Errorf("%w: quantity must be an integer", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{apperrors.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{errors.New("pool exhausted"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, testLogger())

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeResponse(t, rec).Error.Code)
		})
	}
}

func TestWriteError_InternalHidesCauseAndLogs(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	rec := httptest.NewRecorder()

	WriteError(rec, httptest.NewRequest(http.MethodPost, "/api/v1/inventory/bulk", nil),
		apperrors.Persistence("append ledger", errors.New("connection reset")), l)

	resp := decodeResponse(t, rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, resp.Error.Message, "connection reset")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(context.Background(), "req-9"))

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	assert.Equal(t, "req-9", decodeResponse(t, rec).Error.RequestID)
}

func TestWriteValidationError(t *testing.T) {
	type body struct {
		Quantity *int `json:"quantity" validate:"required"`
	}

	rec := httptest.NewRecorder()
	WriteValidationError(rec, validator.Validate(body{}))
	resp := decodeResponse(t, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "is required", resp.Error.Fields["quantity"])

	rec = httptest.NewRecorder()
	WriteValidationError(rec, errors.New("decode request body: unexpected EOF"))
	assert.Equal(t, "INVALID_INPUT", decodeResponse(t, rec).Error.Code)
}

func TestResponse_OmitsEmptyFields(t *testing.T) {
	b, err := json.Marshal(Response{Data: "ok"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":"ok"}`, string(b))
}

func TestParseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "550E8400-E29B-41D4-A716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())

	for _, bad := range []string{"", "not-a-uuid", "550e8400"} {
		rec := httptest.NewRecorder()
		_, ok := ParseUUID(rec, bad)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_PARAMETER", decodeResponse(t, rec).Error.Code)
	}
}
