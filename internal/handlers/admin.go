package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/velvethours/partyline/internal/logging"
	"github.com/velvethours/partyline/internal/middleware"
	"github.com/velvethours/partyline/internal/models"
	"github.com/velvethours/partyline/internal/services"
)

// TierAdmin is the tier management surface of the dashboard.
type TierAdmin interface {
	Create(ctx context.Context, partyID string, params models.TierParams) (*models.Tier, error)
	Update(ctx context.Context, tierID uuid.UUID, params models.TierParams) (*models.Tier, error)
	ListWithAvailability(ctx context.Context, partyID string) ([]services.TierAvailability, error)
}

// RegistrationAdmin is the registration management surface of the dashboard.
type RegistrationAdmin interface {
	List(ctx context.Context, partyID string, status models.RegistrationStatus) ([]models.Registration, error)
	PromoteNext(ctx context.Context, tierID uuid.UUID) (*models.Registration, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// MatchRowImporter ingests the matchmaking CSV.
type MatchRowImporter interface {
	ImportCSV(ctx context.Context, partyID string, r io.Reader) (int, error)
}

// CacheInvalidator drops cached match rows after an import.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, partyID string)
}

type AdminHandler struct {
	tiers         TierAdmin
	registrations RegistrationAdmin
	matchRows     MatchRowImporter
	cache         CacheInvalidator
	partyID       string
}

func NewAdminHandler(tiers TierAdmin, registrations RegistrationAdmin, matchRows MatchRowImporter, partyID string) *AdminHandler {
	return &AdminHandler{tiers: tiers, registrations: registrations, matchRows: matchRows, partyID: partyID}
}

// SetCacheInvalidator wires the match-row cache, when one is configured.
func (h *AdminHandler) SetCacheInvalidator(cache CacheInvalidator) {
	h.cache = cache
}

type tierRequest struct {
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Quantity   int    `json:"quantity"`
	SortOrder  int    `json:"sort_order"`
	Active     bool   `json:"active"`
}

func (req tierRequest) params() models.TierParams {
	return models.TierParams{
		Name:       req.Name,
		PriceCents: req.PriceCents,
		Quantity:   req.Quantity,
		SortOrder:  req.SortOrder,
		Active:     req.Active,
	}
}

type adminTierListResponse struct {
	Tiers []services.TierAvailability `json:"tiers"`
}

func (h *AdminHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.tiers.ListWithAvailability(r.Context(), h.partyID)
	if err != nil {
		logging.Error("Listing tiers failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, adminTierListResponse{Tiers: tiers})
}

func (h *AdminHandler) CreateTier(w http.ResponseWriter, r *http.Request) {
	var req tierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	params := req.params()
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tier, err := h.tiers.Create(r.Context(), h.partyID, params)
	if err != nil {
		logging.Error("Creating tier failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]*models.Tier{"tier": tier})
}

func (h *AdminHandler) UpdateTier(w http.ResponseWriter, r *http.Request) {
	tierID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tier ID")
		return
	}
	var req tierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	params := req.params()
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tier, err := h.tiers.Update(r.Context(), tierID, params)
	if errors.Is(err, services.ErrTierNotFound) {
		writeError(w, http.StatusNotFound, "Tier not found")
		return
	}
	if err != nil {
		logging.Error("Updating tier failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*models.Tier{"tier": tier})
}

type registrationListResponse struct {
	Registrations []models.Registration `json:"registrations"`
}

func (h *AdminHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	status := models.RegistrationStatus(r.URL.Query().Get("status"))
	if status != "" && !models.IsValidStatus(status) {
		writeError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	regs, err := h.registrations.List(r.Context(), h.partyID, status)
	if err != nil {
		logging.Error("Listing registrations failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, registrationListResponse{Registrations: regs})
}

func (h *AdminHandler) PromoteNext(w http.ResponseWriter, r *http.Request) {
	tierID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tier ID")
		return
	}

	reg, err := h.registrations.PromoteNext(r.Context(), tierID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, registerResponse{Registration: reg})
	case errors.Is(err, services.ErrTierNotFound):
		writeError(w, http.StatusNotFound, "Tier not found")
	case errors.Is(err, services.ErrTierFull):
		writeError(w, http.StatusConflict, "Tier has no free seats")
	case errors.Is(err, services.ErrNoWaitlistedEntries):
		writeError(w, http.StatusConflict, "No waitlisted registrations for tier")
	default:
		logging.Error("Promoting registration failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *AdminHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid registration ID")
		return
	}

	err = h.registrations.Cancel(r.Context(), id)
	if errors.Is(err, services.ErrRegistrationNotFound) {
		writeError(w, http.StatusNotFound, "Registration not found")
		return
	}
	if err != nil {
		logging.Error("Cancelling registration failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Registration cancelled"})
}

type importResponse struct {
	Imported int `json:"imported"`
}

// ImportMatchRows ingests the matchmaking CSV posted as the request body and
// drops any cached snapshot.
func (h *AdminHandler) ImportMatchRows(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()

	count, err := h.matchRows.ImportCSV(r.Context(), h.partyID, r.Body)
	if errors.Is(err, services.ErrEmptyImport) {
		writeError(w, http.StatusBadRequest, "Import contains no data rows")
		return
	}
	if err != nil {
		logging.Error("Match row import failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(r.Context(), h.partyID)
	}

	admin, _ := middleware.AdminEmailFromContext(r.Context())
	logging.Info("Match rows imported", map[string]interface{}{
		"party_id": h.partyID,
		"rows":     count,
		"admin":    admin,
	})
	writeJSON(w, http.StatusOK, importResponse{Imported: count})
}
