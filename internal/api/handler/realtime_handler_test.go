package handler

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
	"github.com/endlessworld/campusnav/internal/infrastructure/ws"
)

func TestRealtimeHandler_Fix(t *testing.T) {
	stub := &stubNavigationService{fixResult: &ports.FixResult{}}
	h := NewRealtimeHandler(stub)

	err := h.Handle(&ws.Client{UserID: "alice"}, MessageFix, json.RawMessage(`{"latitude":-6.77,"longitude":39.24,"speed":1.2}`))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if stub.lastSession != "alice" || stub.lastFix.Lat != -6.77 || stub.lastFix.Speed == nil {
		t.Fatalf("unexpected fix forwarded: %s %+v", stub.lastSession, stub.lastFix)
	}
}

func TestRealtimeHandler_PositionError(t *testing.T) {
	stub := &stubNavigationService{}
	h := NewRealtimeHandler(stub)

	if err := h.Handle(&ws.Client{UserID: "bob"}, MessagePositionError, json.RawMessage(`{"kind":"permission_denied"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if stub.lastSession != "bob" || stub.lastKind != domain.PositionPermissionDenied {
		t.Fatalf("unexpected forward %s %q", stub.lastSession, stub.lastKind)
	}
}

func TestRealtimeHandler_RejectsInvalidFix(t *testing.T) {
	stub := &stubNavigationService{}
	h := NewRealtimeHandler(stub)

	if err := h.Handle(&ws.Client{UserID: "alice"}, MessageFix, json.RawMessage(`{"latitude":-120,"longitude":0}`)); err == nil {
		t.Fatal("expected a validation error")
	}
	if err := h.Handle(&ws.Client{UserID: "alice"}, MessageFix, json.RawMessage(`{"lat":-6.77,"lon":39.24}`)); err == nil {
		t.Fatal("expected missing coordinates to be rejected")
	}
	if err := h.Handle(&ws.Client{UserID: "alice"}, MessageFix, json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected a decode error")
	}
	if stub.lastSession != "" {
		t.Fatal("service should not be called")
	}
}

func TestRealtimeHandler_PropagatesServiceError(t *testing.T) {
	h := NewRealtimeHandler(&stubNavigationService{err: domain.ErrWatchStopped})

	err := h.Handle(&ws.Client{UserID: "alice"}, MessageFix, json.RawMessage(`{"latitude":1,"longitude":2}`))
	if !errors.Is(err, domain.ErrWatchStopped) {
		t.Fatalf("expected ErrWatchStopped, got %v", err)
	}
}

func TestRealtimeHandler_UnknownType(t *testing.T) {
	h := NewRealtimeHandler(&stubNavigationService{})
	if err := h.Handle(&ws.Client{UserID: "alice"}, "teleport", nil); err == nil {
		t.Fatal("expected an error for an unknown message type")
	}
}
