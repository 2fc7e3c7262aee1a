package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/velvethours/partyline/internal/services"
	"github.com/velvethours/partyline/internal/wrapped"
)

type mockScriptBuilder struct {
	BuildScriptFunc func(ctx context.Context, partyID, viewerHandle string) (*wrapped.WrappedScript, error)
}

func (m *mockScriptBuilder) BuildScript(ctx context.Context, partyID, viewerHandle string) (*wrapped.WrappedScript, error) {
	return m.BuildScriptFunc(ctx, partyID, viewerHandle)
}

type mockHandleResolver struct {
	ViewerHandleForTokenFunc func(ctx context.Context, token string) (string, error)
}

func (m *mockHandleResolver) ViewerHandleForToken(ctx context.Context, token string) (string, error) {
	if m.ViewerHandleForTokenFunc != nil {
		return m.ViewerHandleForTokenFunc(ctx, token)
	}
	return "", services.ErrTicketNotFound
}

func minimalScript(partyID string) *wrapped.WrappedScript {
	return &wrapped.WrappedScript{
		Meta: wrapped.ScriptMeta{PartyID: partyID, Now: time.Date(2026, 2, 11, 21, 0, 0, 0, time.UTC)},
	}
}

func TestWrappedScript_MissingPartyID(t *testing.T) {
	handler := NewWrappedHandler(&mockScriptBuilder{}, &mockHandleResolver{}, "valentines-2026")

	req := httptest.NewRequest(http.MethodGet, "/api/wrapped-script?viewerHandle=jdoe", nil)
	rr := httptest.NewRecorder()
	handler.Script(rr, req)

	assertErrorResponse(t, rr, http.StatusBadRequest, "partyId is required")
}

func TestWrappedScript_WrongParty(t *testing.T) {
	handler := NewWrappedHandler(&mockScriptBuilder{}, &mockHandleResolver{}, "valentines-2026")

	req := httptest.NewRequest(http.MethodGet, "/api/wrapped-script?partyId=nye-2025&viewerHandle=jdoe", nil)
	rr := httptest.NewRecorder()
	handler.Script(rr, req)

	assertErrorResponse(t, rr, http.StatusForbidden, "Wrapped is not enabled for this party")
}

func TestWrappedScript_MissingViewer(t *testing.T) {
	handler := NewWrappedHandler(&mockScriptBuilder{}, &mockHandleResolver{}, "valentines-2026")

	req := httptest.NewRequest(http.MethodGet, "/api/wrapped-script?partyId=valentines-2026", nil)
	rr := httptest.NewRecorder()
	handler.Script(rr, req)

	assertErrorResponse(t, rr, http.StatusBadRequest, "viewerHandle or ticket is required")
}

func TestWrappedScript_BuilderFailureIsGeneric500(t *testing.T) {
	handler := NewWrappedHandler(&mockScriptBuilder{
		BuildScriptFunc: func(ctx context.Context, partyID, viewerHandle string) (*wrapped.WrappedScript, error) {
			return nil, errors.New("pg: connection refused")
		},
	}, &mockHandleResolver{}, "valentines-2026")

	req := httptest.NewRequest(http.MethodGet, "/api/wrapped-script?partyId=valentines-2026&viewerHandle=jdoe", nil)
	rr := httptest.NewRecorder()
	handler.Script(rr, req)

	assertErrorResponse(t, rr, http.StatusInternalServerError, "Internal server error")
}

func TestWrappedScript_Success(t *testing.T) {
	var gotHandle string
	handler := NewWrappedHandler(&mockScriptBuilder{
		BuildScriptFunc: func(ctx context.Context, partyID, viewerHandle string) (*wrapped.WrappedScript, error) {
			gotHandle = viewerHandle
			return minimalScript(partyID), nil
		},
	}, &mockHandleResolver{}, "valentines-2026")

	req := httptest.NewRequest(http.MethodGet, "/api/wrapped-script?partyId=valentines-2026&viewerHandle=JDoe", nil)
	rr := httptest.NewRecorder()
	handler.Script(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotHandle != "JDoe" {
		t.Fatalf("expected raw handle passed through, got %q", gotHandle)
	}

	var script wrapped.WrappedScript
	if err := json.NewDecoder(rr.Body).Decode(&script); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if script.Meta.PartyID != "valentines-2026" {
		t.Fatalf("unexpected party id: %q", script.Meta.PartyID)
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store, got %q", got)
	}
}

func TestWrappedScript_TicketResolvesHandle(t *testing.T) {
	var builtHandle string
	handler := NewWrappedHandler(&mockScriptBuilder{
		BuildScriptFunc: func(ctx context.Context, partyID, viewerHandle string) (*wrapped.WrappedScript, error) {
			builtHandle = viewerHandle
			return minimalScript(partyID), nil
		},
	}, &mockHandleResolver{
		ViewerHandleForTokenFunc: func(ctx context.Context, token string) (string, error) {
			if token != testToken {
				t.Fatalf("unexpected token: %q", token)
			}
			return "jdoe", nil
		},
	}, "valentines-2026")

	req := httptest.NewRequest(http.MethodGet, "/api/wrapped-script?partyId=valentines-2026&ticket="+testToken, nil)
	rr := httptest.NewRecorder()
	handler.Script(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if builtHandle != "jdoe" {
		t.Fatalf("expected resolved handle, got %q", builtHandle)
	}
}

func TestWrappedScript_UnknownTicket(t *testing.T) {
	handler := NewWrappedHandler(&mockScriptBuilder{}, &mockHandleResolver{}, "valentines-2026")

	req := httptest.NewRequest(http.MethodGet, "/api/wrapped-script?partyId=valentines-2026&ticket="+testToken, nil)
	rr := httptest.NewRecorder()
	handler.Script(rr, req)

	assertErrorResponse(t, rr, http.StatusNotFound, "Ticket not found")
}
