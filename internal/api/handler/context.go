package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxOperator extracts the auth claims injected by the Auth middleware.
// An empty operator means the middleware never ran; reject with 401 before
// any service call so audit records are always attributable.
func ctxOperator(c echo.Context) (operator, role string, err error) {
	operator, _ = c.Get("operator").(string)
	if operator == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	role, _ = c.Get("role").(string)
	return operator, role, nil
}
