package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
)

func newEchoContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{apperr.NotFound("order not found"), 404, "NOT_FOUND"},
		{apperr.Conflict("cart is not active"), 409, "CONFLICT"},
		{apperr.Validation("quantity must be positive"), 400, "VALIDATION"},
		{apperr.Unauthorized("invalid signature"), 401, "UNAUTHORIZED"},
		{apperr.Upstream("provider returned status 500"), 502, "UPSTREAM"},
		{apperr.RateLimited("quote rate limit exceeded"), 429, "CONFLICT"},
	}

	for _, tc := range cases {
		c, rec := newEchoContext(t)
		require.NoError(t, respondError(c, tc.err))
		assert.Equal(t, tc.status, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.kind, body["kind"])
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	c, rec := newEchoContext(t)

	require.NoError(t, respondError(c, errors.New("dial tcp 10.0.0.5:3306: connection refused")))

	assert.Equal(t, 500, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body["error"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestRespondErrorIncludesDetails(t *testing.T) {
	c, rec := newEchoContext(t)

	err := apperr.Validation("incomplete shipping address", map[string]any{
		"missing_fields": []string{"direccion", "comuna"},
	})
	require.NoError(t, respondError(c, err))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	details := body["details"].(map[string]any)
	assert.Equal(t, []any{"direccion", "comuna"}, details["missing_fields"])
}

func TestPathIDRejectsGarbage(t *testing.T) {
	c, _ := newEchoContext(t)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	_, err := pathID(c, "id")

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
