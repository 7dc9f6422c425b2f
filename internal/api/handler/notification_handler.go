package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
)

// NotificationHandler serves the polled notification inbox.
type NotificationHandler struct {
	service ports.NotificationService
}

func NewNotificationHandler(service ports.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

type listNotificationsRequest struct {
	Unread bool `query:"unread"`
}

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

type unreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// List handles GET /v1/notifications.
//
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        unread  query     bool  false  "Only unread notifications"
// @Success      200     {object}  notificationsResponse
// @Failure      401     {object}  errorResponse
// @Router       /v1/notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	username, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req listNotificationsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}

	ns, err := h.service.List(c.Request().Context(), username, req.Unread)
	if err != nil {
		return err
	}
	if ns == nil {
		ns = []domain.Notification{}
	}
	return c.JSON(http.StatusOK, notificationsResponse{Notifications: ns})
}

// UnreadCount handles GET /v1/notifications/unread_count.
//
// @Summary      Count unread notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  unreadCountResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/notifications/unread_count [get]
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	username, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	n, err := h.service.UnreadCount(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, unreadCountResponse{UnreadCount: n})
}

// MarkRead handles POST /v1/notifications/:id/read.
//
// @Summary      Mark a notification as read
// @Tags         notifications
// @Security     BearerAuth
// @Param        id   path  string  true  "Notification id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	username, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	if err := h.service.MarkRead(c.Request().Context(), username, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
