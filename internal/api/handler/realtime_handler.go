package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
	"github.com/endlessworld/campusnav/internal/infrastructure/ws"
)

// Client message types accepted over the websocket.
const (
	MessageFix           = "fix"
	MessagePositionError = "position_error"
)

const realtimeTimeout = 5 * time.Second

// RealtimeHandler feeds position messages received over the websocket into
// the navigation service. The resulting display is delivered back as the
// usual "position" event.
type RealtimeHandler struct {
	service   ports.NavigationService
	validator echo.Validator
}

func NewRealtimeHandler(service ports.NavigationService) *RealtimeHandler {
	return &RealtimeHandler{service: service, validator: NewValidator()}
}

// Handle satisfies ws.MessageHandler.
func (h *RealtimeHandler) Handle(c *ws.Client, messageType string, data json.RawMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), realtimeTimeout)
	defer cancel()

	switch messageType {
	case MessageFix:
		var req fixRequest
		if err := h.decode(data, &req); err != nil {
			return err
		}
		_, err := h.service.SubmitFix(ctx, c.UserID, req.toDomain())
		return err

	case MessagePositionError:
		var req positionErrorRequest
		if err := h.decode(data, &req); err != nil {
			return err
		}
		return h.service.ReportPositionError(ctx, c.UserID, domain.ParsePositionErrorKind(req.Kind))

	default:
		return fmt.Errorf("unsupported message type %q", messageType)
	}
}

func (h *RealtimeHandler) decode(data json.RawMessage, req any) error {
	if err := json.Unmarshal(data, req); err != nil {
		return errors.New("invalid payload")
	}
	return h.validator.Validate(req)
}
