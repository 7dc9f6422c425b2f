package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
	"github.com/endlessworld/campusnav/internal/core/service"
)

// NavigationHandler exposes the live tracking use cases of the caller's own
// session.
type NavigationHandler struct {
	service ports.NavigationService
}

func NewNavigationHandler(service ports.NavigationService) *NavigationHandler {
	return &NavigationHandler{service: service}
}

// SubmitFix handles POST /v1/navigation/fixes.
//
// @Summary      Submit a position fix
// @Tags         navigation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      fixRequest  true  "Position fix"
// @Success      202   {object}  fixResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/navigation/fixes [post]
func (h *NavigationHandler) SubmitFix(c echo.Context) error {
	username, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req fixRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.SubmitFix(c.Request().Context(), username, req.toDomain())
	if err != nil {
		return err
	}

	resp := fixResponse{Duplicate: res.Duplicate}
	if res.Display != nil {
		p := service.NewPositionPayload(*res.Display, res.HasRoute)
		resp.Position = &p
	}
	return c.JSON(http.StatusAccepted, resp)
}

// ReportPositionError handles POST /v1/navigation/position-errors.
//
// @Summary      Report a position stream error
// @Tags         navigation
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  positionErrorRequest  true  "Error kind"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Router       /v1/navigation/position-errors [post]
func (h *NavigationHandler) ReportPositionError(c echo.Context) error {
	username, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req positionErrorRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	kind := domain.ParsePositionErrorKind(req.Kind)
	if err := h.service.ReportPositionError(c.Request().Context(), username, kind); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SetRoute handles PUT /v1/navigation/route.
//
// @Summary      Replace the active route geometry
// @Tags         navigation
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  setRouteRequest  true  "Route as [lat, lon] pairs"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/navigation/route [put]
func (h *NavigationHandler) SetRoute(c echo.Context) error {
	username, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req setRouteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.service.SetRoute(c.Request().Context(), username, req.toDomain()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearRoute handles DELETE /v1/navigation/route.
//
// @Summary      Clear the active route
// @Tags         navigation
// @Security     BearerAuth
// @Success      204
// @Router       /v1/navigation/route [delete]
func (h *NavigationHandler) ClearRoute(c echo.Context) error {
	username, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	if err := h.service.ClearRoute(c.Request().Context(), username); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// StartWatch handles POST /v1/navigation/watch.
//
// @Summary      Resume fix processing after permission was granted again
// @Tags         navigation
// @Security     BearerAuth
// @Success      204
// @Router       /v1/navigation/watch [post]
func (h *NavigationHandler) StartWatch(c echo.Context) error {
	username, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	if err := h.service.StartWatch(c.Request().Context(), username); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Directions handles POST /v1/navigation/directions.
//
// @Summary      Fetch a route and make it the active one
// @Tags         navigation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      directionsRequest  true  "Origin, destination and mode"
// @Success      200   {object}  service.RoutePayload
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /v1/navigation/directions [post]
func (h *NavigationHandler) Directions(c echo.Context) error {
	username, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req directionsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	route, err := h.service.Navigate(c.Request().Context(), ports.NavigateInput{
		SessionID:        username,
		Origin:           req.Origin.toDomain(),
		OriginLocationID: req.OriginLocationID,
		Destination:      *req.Destination.toDomain(),
		Mode:             req.Mode,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, service.NewRoutePayload(*route))
}

// Recalculate handles POST /v1/navigation/recalculate. The new route is
// delivered later as a "route" event.
//
// @Summary      Request a route from the current position to the destination
// @Tags         navigation
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  recalculateResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/navigation/recalculate [post]
func (h *NavigationHandler) Recalculate(c echo.Context) error {
	username, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	req, err := h.service.Recalculate(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, recalculateResponse{
		RequestID:   req.ID,
		Origin:      req.Origin,
		Destination: req.Destination,
		Mode:        req.Mode,
	})
}

// Session handles GET /v1/navigation/session.
//
// @Summary      Current navigation session state
// @Tags         navigation
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/navigation/session [get]
func (h *NavigationHandler) Session(c echo.Context) error {
	username, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	st, err := h.service.Status(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionResponse(st))
}

// bindAndValidate decodes the body into req and runs the struct validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
