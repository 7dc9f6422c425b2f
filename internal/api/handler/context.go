package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxClaims returns the identity the Auth middleware stored on the context.
// The username doubles as the navigation session id. Both claims must be
// present; a token without them is structurally valid but unusable.
func ctxClaims(c echo.Context) (username, role string, err error) {
	username, _ = c.Get("username").(string)
	role, _ = c.Get("role").(string)
	if username == "" || role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return username, role, nil
}
