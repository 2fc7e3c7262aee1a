package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/velvethours/partyline/internal/logging"
	"github.com/velvethours/partyline/internal/middleware"
	"github.com/velvethours/partyline/internal/services"
)

// SessionManager is the admin session surface of the auth flow.
type SessionManager interface {
	LoginFromClaims(ctx context.Context, claims services.IdentityClaims) (string, error)
	LoginWithPassword(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, token string)
}

type AuthHandler struct {
	provider services.AuthProvider
	sessions SessionManager
	secure   bool
}

// NewAuthHandler builds the admin login flow. provider may be nil when no
// OAuth client is configured; password login still works.
func NewAuthHandler(provider services.AuthProvider, sessions SessionManager, secureCookies bool) *AuthHandler {
	return &AuthHandler{provider: provider, sessions: sessions, secure: secureCookies}
}

const (
	stateCookie = "oauth_state"
	nonceCookie = "oauth_nonce"
)

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (h *AuthHandler) setTransientCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminSessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Start begins the OIDC code flow.
func (h *AuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeError(w, http.StatusNotFound, "OAuth login is not configured")
		return
	}

	state, err := randomToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	nonce, err := randomToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.setTransientCookie(w, stateCookie, state)
	h.setTransientCookie(w, nonceCookie, nonce)
	http.Redirect(w, r, h.provider.AuthCodeURL(state, nonce), http.StatusFound)
}

// Callback finishes the OIDC code flow and issues the admin session.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeError(w, http.StatusNotFound, "OAuth login is not configured")
		return
	}

	stateC, err := r.Cookie(stateCookie)
	if err != nil || stateC.Value == "" || r.URL.Query().Get("state") != stateC.Value {
		writeError(w, http.StatusBadRequest, "State mismatch")
		return
	}
	nonceC, err := r.Cookie(nonceCookie)
	if err != nil || nonceC.Value == "" {
		writeError(w, http.StatusBadRequest, "Missing nonce")
		return
	}
	h.clearCookie(w, stateCookie, "/auth")
	h.clearCookie(w, nonceCookie, "/auth")

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	claims, err := h.provider.ExchangeAndVerify(r.Context(), code, nonceC.Value)
	if err != nil {
		logging.Warn("OAuth exchange failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusBadRequest, "Authentication failed")
		return
	}

	token, err := h.sessions.LoginFromClaims(r.Context(), claims)
	switch {
	case err == nil:
		h.setSessionCookie(w, token)
		http.Redirect(w, r, "/admin", http.StatusFound)
	case errors.Is(err, services.ErrNotAdmin), errors.Is(err, services.ErrEmailUnverified):
		writeError(w, http.StatusForbidden, "Not authorized")
	default:
		logging.Error("Admin login failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

type passwordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordLogin is the OAuth-free fallback for local setups.
func (h *AuthHandler) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	var req passwordLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.sessions.LoginWithPassword(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		h.setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged in"})
	case errors.Is(err, services.ErrNotAdmin), errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		logging.Error("Password login failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.AdminSessionCookie); err == nil {
		h.sessions.Logout(r.Context(), cookie.Value)
	}
	h.clearCookie(w, middleware.AdminSessionCookie, "/")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
