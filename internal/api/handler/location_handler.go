package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
)

// LocationHandler serves the campus location catalogue.
type LocationHandler struct {
	service ports.LocationService
}

func NewLocationHandler(service ports.LocationService) *LocationHandler {
	return &LocationHandler{service: service}
}

type locationRequest struct {
	Name         string             `json:"name"          validate:"required"`
	Description  string             `json:"description"`
	Type         string             `json:"type"`
	Coordinates  coordinatesRequest `json:"coordinates"   validate:"required"`
	FloorLevel   int                `json:"floor_level"`
	IsAccessible bool               `json:"is_accessible"`
}

type searchRequest struct {
	Query string `query:"q" validate:"required"`
}

type searchResponse struct {
	Kind       string                 `json:"search_type"`
	Locations  []domain.LocationMatch `json:"locations"`
	TotalFound int                    `json:"total_found"`
}

// Search handles GET /v1/locations?q=.
//
// @Summary      Search campus locations
// @Description  "lat,lon" lists locations within 100 m of the point; any other query matches name, description and type.
// @Tags         locations
// @Produce      json
// @Security     BearerAuth
// @Param        q    query     string  true  "Text or lat,lon"
// @Success      200  {object}  searchResponse
// @Failure      400  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/locations [get]
func (h *LocationHandler) Search(c echo.Context) error {
	var req searchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.Search(c.Request().Context(), req.Query)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, searchResponse{
		Kind:       res.Kind,
		Locations:  res.Matches,
		TotalFound: len(res.Matches),
	})
}

// Get handles GET /v1/locations/:id.
//
// @Summary      Get a campus location
// @Tags         locations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Location id"
// @Success      200  {object}  domain.Location
// @Failure      404  {object}  errorResponse
// @Router       /v1/locations/{id} [get]
func (h *LocationHandler) Get(c echo.Context) error {
	loc, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loc)
}

// Put handles PUT /v1/locations/:id (admin only).
//
// @Summary      Create or replace a campus location
// @Tags         locations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Location id"
// @Param        body  body      locationRequest  true  "Location"
// @Success      200   {object}  domain.Location
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/locations/{id} [put]
func (h *LocationHandler) Put(c echo.Context) error {
	var req locationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	loc, err := h.service.Put(c.Request().Context(), domain.Location{
		ID:           c.Param("id"),
		Name:         req.Name,
		Description:  req.Description,
		Type:         req.Type,
		Coordinates:  *req.Coordinates.toDomain(),
		FloorLevel:   req.FloorLevel,
		IsAccessible: req.IsAccessible,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loc)
}
