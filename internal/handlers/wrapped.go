package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/velvethours/partyline/internal/logging"
	"github.com/velvethours/partyline/internal/services"
	"github.com/velvethours/partyline/internal/wrapped"
)

// ScriptBuilder assembles a viewer's reveal script.
type ScriptBuilder interface {
	BuildScript(ctx context.Context, partyID, viewerHandle string) (*wrapped.WrappedScript, error)
}

// HandleResolver turns a ticket token into the registered handle.
type HandleResolver interface {
	ViewerHandleForToken(ctx context.Context, token string) (string, error)
}

type WrappedHandler struct {
	builder ScriptBuilder
	tickets HandleResolver
	partyID string
}

func NewWrappedHandler(builder ScriptBuilder, tickets HandleResolver, partyID string) *WrappedHandler {
	return &WrappedHandler{builder: builder, tickets: tickets, partyID: partyID}
}

// Script serves GET /api/wrapped-script. The viewer identifies with either a
// viewerHandle query param or a ticket token; the token path is the trusted
// one since handles are guessable.
func (h *WrappedHandler) Script(w http.ResponseWriter, r *http.Request) {
	partyID := strings.TrimSpace(r.URL.Query().Get("partyId"))
	if partyID == "" {
		writeError(w, http.StatusBadRequest, "partyId is required")
		return
	}
	if partyID != h.partyID {
		writeError(w, http.StatusForbidden, "Wrapped is not enabled for this party")
		return
	}

	viewerHandle := strings.TrimSpace(r.URL.Query().Get("viewerHandle"))
	if ticketToken := strings.TrimSpace(r.URL.Query().Get("ticket")); ticketToken != "" {
		resolved, err := h.tickets.ViewerHandleForToken(r.Context(), ticketToken)
		if errors.Is(err, services.ErrTicketNotFound) {
			writeError(w, http.StatusNotFound, "Ticket not found")
			return
		}
		if err != nil {
			logging.Error("Resolving ticket handle failed", map[string]interface{}{"error": err.Error()})
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		viewerHandle = resolved
	}
	if viewerHandle == "" {
		writeError(w, http.StatusBadRequest, "viewerHandle or ticket is required")
		return
	}

	script, err := h.builder.BuildScript(r.Context(), partyID, viewerHandle)
	if err != nil {
		logging.Error("Building wrapped script failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, script)
}
