// Package api exposes the HTTP surface over echo.
package api

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
)

// respondError maps a typed application error onto the wire. Unknown errors
// collapse to a generic 500 so driver and provider internals never leak.
func respondError(c echo.Context, err error) error {
	e := apperr.From(err)
	body := map[string]any{
		"error": e.Message,
		"kind":  string(e.Kind),
	}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	return c.JSON(e.HTTPStatus(), body)
}

func pathID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, apperr.Validation("invalid " + name)
	}
	return id, nil
}
