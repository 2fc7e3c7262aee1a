package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/velvethours/partyline/internal/logging"
	"github.com/velvethours/partyline/internal/models"
	"github.com/velvethours/partyline/internal/services"
)

// RegistrationCreator is the slice of the registration service the public
// handler uses.
type RegistrationCreator interface {
	Create(ctx context.Context, params models.CreateRegistrationParams) (*models.Registration, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
}

// TierLister exposes tier availability for the registration form.
type TierLister interface {
	ListWithAvailability(ctx context.Context, partyID string) ([]services.TierAvailability, error)
}

type RegistrationHandler struct {
	registrations RegistrationCreator
	tiers         TierLister
	partyID       string
}

func NewRegistrationHandler(registrations RegistrationCreator, tiers TierLister, partyID string) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, tiers: tiers, partyID: partyID}
}

type registerRequest struct {
	TierID      string `json:"tier_id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type registerResponse struct {
	Registration *models.Registration `json:"registration"`
}

func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tierID, err := uuid.Parse(req.TierID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tier ID")
		return
	}

	params := models.CreateRegistrationParams{
		PartyID:     h.partyID,
		TierID:      tierID,
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		Email:       req.Email,
	}
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reg, err := h.registrations.Create(r.Context(), params)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, registerResponse{Registration: reg})
	case errors.Is(err, services.ErrTierNotFound), errors.Is(err, services.ErrTierWrongParty):
		writeError(w, http.StatusNotFound, "Tier not found")
	case errors.Is(err, services.ErrTierInactive):
		writeError(w, http.StatusConflict, "Tier is not open for registration")
	case errors.Is(err, services.ErrHandleAlreadyRegistered):
		writeError(w, http.StatusConflict, "Handle already registered")
	default:
		logging.Error("Registration failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid registration ID")
		return
	}

	reg, err := h.registrations.GetByID(r.Context(), id)
	if errors.Is(err, services.ErrRegistrationNotFound) {
		writeError(w, http.StatusNotFound, "Registration not found")
		return
	}
	if err != nil {
		logging.Error("Loading registration failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{Registration: reg})
}

type publicTier struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PriceLabel string    `json:"price_label"`
	Remaining  int       `json:"remaining"`
	SoldOut    bool      `json:"sold_out"`
}

type tierListResponse struct {
	Tiers []publicTier `json:"tiers"`
}

// ListTiers serves the registration form: active tiers only, with remaining
// seat counts.
func (h *RegistrationHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.tiers.ListWithAvailability(r.Context(), h.partyID)
	if err != nil {
		logging.Error("Listing tiers failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	tiers := make([]publicTier, 0, len(entries))
	for _, entry := range entries {
		if !entry.Tier.Active {
			continue
		}
		tiers = append(tiers, publicTier{
			ID:         entry.Tier.ID,
			Name:       entry.Tier.Name,
			PriceLabel: entry.Tier.PriceLabel(),
			Remaining:  entry.Remaining(),
			SoldOut:    entry.Remaining() == 0,
		})
	}
	writeJSON(w, http.StatusOK, tierListResponse{Tiers: tiers})
}
