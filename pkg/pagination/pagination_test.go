package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		query       string
		wantPage    int
		wantPerPage int
		wantOffset  int
	}{
		{"", 1, DefaultPerPage, 0},
		{"?page=3&per_page=10", 3, 10, 20},
		{"?page=-2", 1, DefaultPerPage, 0},
		{"?page=abc&per_page=xyz", 1, DefaultPerPage, 0},
		{"?per_page=500", 1, MaxPerPage, 0},
		{"?page=2&per_page=0", 2, DefaultPerPage, DefaultPerPage},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := FromRequest(httptest.NewRequest(http.MethodGet, "/inventory/low-stock"+tt.query, nil))
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPerPage, p.PerPage)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestNewResult(t *testing.T) {
	r := NewResult([]string{"a", "b"}, 45, New(2, 20))
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)

	last := NewResult([]string{"x"}, 41, New(3, 20))
	assert.False(t, last.HasNext)
}

func TestNewResult_NilDataEncodesEmptyArray(t *testing.T) {
	r := NewResult[int](nil, 0, DefaultParams())
	assert.Equal(t, 0, r.TotalPages)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"data":[]`)
}
