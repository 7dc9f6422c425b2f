package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/endlessworld/campusnav/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain
// errors to status codes and renders {"error": "<message>"}. Unexpected
// errors are logged and reported as a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

// statusFor lists the domain errors whose message is safe to show.
var statusFor = []struct {
	err  error
	code int
}{
	{domain.ErrNoDestination, http.StatusConflict},
	{domain.ErrNoCurrentPosition, http.StatusConflict},
	{domain.ErrWatchStopped, http.StatusConflict},
	{domain.ErrUserExists, http.StatusConflict},
	{domain.ErrRouteTooShort, http.StatusUnprocessableEntity},
	{domain.ErrOutsideBoundary, http.StatusUnprocessableEntity},
	{domain.ErrInvalidLocation, http.StatusUnprocessableEntity},
	{domain.ErrInvalidMode, http.StatusUnprocessableEntity},
	{domain.ErrQueryTooShort, http.StatusUnprocessableEntity},
	{domain.ErrInvalidCoordinates, http.StatusUnprocessableEntity},
	{domain.ErrLocationNotFound, http.StatusNotFound},
	{domain.ErrSessionNotFound, http.StatusNotFound},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrNotificationNotFound, http.StatusNotFound},
	{domain.ErrNoRouteFound, http.StatusBadGateway},
	{domain.ErrDirectionsFailed, http.StatusBadGateway},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			if m.code == http.StatusBadGateway {
				log.Warn().Err(err).Str("path", c.Path()).Msg("directions lookup failed")
			}
			return m.code, m.err.Error()
		}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
