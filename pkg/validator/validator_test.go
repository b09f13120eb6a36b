package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adjustBody struct {
	Quantity *int   `json:"quantity" validate:"required"`
	Reason   string `json:"reason" validate:"max=200"`
}

type bulkItem struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Stock     int    `json:"stock" validate:"gte=0"`
}

type bulkBody struct {
	Items []bulkItem `json:"items" validate:"required,min=1,max=3,dive"`
	Mode  string     `json:"mode" validate:"omitempty,oneof=set delta"`
}

func intPtr(v int) *int { return &v }

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(adjustBody{Quantity: intPtr(-3), Reason: "damaged"}))
}

func TestValidate_RequiredUsesJSONName(t *testing.T) {
	err := Validate(adjustBody{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["quantity"])
	assert.Contains(t, err.Error(), "field 'quantity' is required")
}

func TestValidate_DiveReportsItemPath(t *testing.T) {
	err := Validate(bulkBody{Items: []bulkItem{
		{ProductID: "550e8400-e29b-41d4-a716-446655440000", Stock: 1},
		{ProductID: "nope", Stock: -1},
	}})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "must be a valid UUID", fields["items[1].product_id"])
	assert.Equal(t, "must be greater than or equal to 0", fields["items[1].stock"])
}

func TestValidate_SliceBounds(t *testing.T) {
	item := bulkItem{ProductID: "550e8400-e29b-41d4-a716-446655440000"}

	var valErr *ValidationError
	require.ErrorAs(t, Validate(bulkBody{Items: []bulkItem{}}), &valErr)
	assert.Equal(t, "must contain at least 1 items", valErr.Fields()["items"])

	require.ErrorAs(t, Validate(bulkBody{Items: []bulkItem{item, item, item, item}}), &valErr)
	assert.Equal(t, "must contain at most 3 items", valErr.Fields()["items"])
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(bulkBody{Items: []bulkItem{{ProductID: "550e8400-e29b-41d4-a716-446655440000"}}, Mode: "replace"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be one of: set delta", valErr.Fields()["mode"])
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"quantity": 4, "reason": "restock"}`, ""},
		{"malformed", `{"quantity": `, "decode request body"},
		{"unknown field", `{"quantity": 1, "qty": 2}`, "unknown field"},
		{"trailing data", `{"quantity": 1}{"quantity": 2}`, "trailing data"},
		{"missing quantity", `{"reason": "x"}`, "quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst adjustBody
			err := DecodeAndValidate(req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 4, *dst.Quantity)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
