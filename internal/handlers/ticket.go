package handlers

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/velvethours/partyline/internal/logging"
	"github.com/velvethours/partyline/internal/models"
	"github.com/velvethours/partyline/internal/services"
)

// TicketReader is the ticket service surface the public handler uses.
type TicketReader interface {
	GetByToken(ctx context.Context, token string) (*models.Ticket, error)
	CheckIn(ctx context.Context, token string) (*models.Ticket, error)
}

// RegistrationReader loads the guest details shown on the pass.
type RegistrationReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
}

// PassRenderer renders the door pass PNG.
type PassRenderer func(partyName string, reg *models.Registration, ticket *models.Ticket, loc *time.Location) ([]byte, error)

type TicketHandler struct {
	tickets       TicketReader
	registrations RegistrationReader
	renderPass    PassRenderer
	partyName     string
	location      *time.Location
}

func NewTicketHandler(tickets TicketReader, registrations RegistrationReader, partyName string, location *time.Location) *TicketHandler {
	return &TicketHandler{
		tickets:       tickets,
		registrations: registrations,
		renderPass:    services.RenderPassPNG,
		partyName:     partyName,
		location:      location,
	}
}

func isValidTicketToken(token string) bool {
	if len(token) != 64 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

type ticketResponse struct {
	Ticket *models.Ticket `json:"ticket"`
	Guest  string         `json:"guest,omitempty"`
}

func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.PathValue("token"))
	if !isValidTicketToken(token) {
		writeError(w, http.StatusNotFound, "Ticket not found")
		return
	}

	ticket, err := h.tickets.GetByToken(r.Context(), token)
	if errors.Is(err, services.ErrTicketNotFound) {
		writeError(w, http.StatusNotFound, "Ticket not found")
		return
	}
	if err != nil {
		logging.Error("Loading ticket failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := ticketResponse{Ticket: ticket}
	if reg, err := h.registrations.GetByID(r.Context(), ticket.RegistrationID); err == nil {
		resp.Guest = reg.DisplayName
	}
	writeJSON(w, http.StatusOK, resp)
}

// PassImage renders the door pass PNG for a ticket token.
func (h *TicketHandler) PassImage(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.PathValue("token"))
	if !isValidTicketToken(token) {
		http.NotFound(w, r)
		return
	}

	ticket, err := h.tickets.GetByToken(r.Context(), token)
	if errors.Is(err, services.ErrTicketNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logging.Error("Loading ticket for pass failed", map[string]interface{}{"error": err.Error()})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	reg, err := h.registrations.GetByID(r.Context(), ticket.RegistrationID)
	if err != nil {
		logging.Error("Loading registration for pass failed", map[string]interface{}{"error": err.Error()})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	img, err := h.renderPass(h.partyName, reg, ticket, h.location)
	if err != nil {
		logging.Error("Rendering pass failed", map[string]interface{}{"error": err.Error()})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

type checkinRequest struct {
	Token string `json:"token"`
}

type checkinResponse struct {
	Status      string     `json:"status"`
	Guest       string     `json:"guest,omitempty"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

// CheckIn consumes a ticket at the door. A repeat scan reports the original
// check-in time instead of consuming anything.
func (h *TicketHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	token := strings.TrimSpace(req.Token)
	if !isValidTicketToken(token) {
		writeError(w, http.StatusNotFound, "Ticket not found")
		return
	}

	ticket, err := h.tickets.CheckIn(r.Context(), token)
	switch {
	case err == nil:
		resp := checkinResponse{Status: "checked_in", CheckedInAt: ticket.CheckedInAt}
		if reg, regErr := h.registrations.GetByID(r.Context(), ticket.RegistrationID); regErr == nil {
			resp.Guest = reg.DisplayName
		}
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, services.ErrTicketAlreadyUsed):
		resp := checkinResponse{Status: "already_used", CheckedInAt: ticket.CheckedInAt}
		if reg, regErr := h.registrations.GetByID(r.Context(), ticket.RegistrationID); regErr == nil {
			resp.Guest = reg.DisplayName
		}
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, services.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, "Ticket not found")
	case errors.Is(err, services.ErrCheckinBusy):
		writeError(w, http.StatusConflict, "Ticket is being checked in")
	default:
		logging.Error("Check-in failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
