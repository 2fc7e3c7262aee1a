package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

var (
	ErrNotAdmin           = errors.New("email is not on the admin list")
	ErrEmailUnverified    = errors.New("provider email not verified")
	ErrInvalidSession     = errors.New("invalid or expired admin session")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type IdentityClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// AuthProvider is the OAuth surface handlers depend on, so auth handler
// tests can stub the exchange.
type AuthProvider interface {
	AuthCodeURL(state, nonce string) string
	ExchangeAndVerify(ctx context.Context, code, nonce string) (IdentityClaims, error)
}

type OIDCConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	IssuerURL    string
	Scopes       []string
}

type OIDCProvider struct {
	verifier    *oidc.IDTokenVerifier
	oauthConfig oauth2.Config
}

func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("client id and secret are required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" || strings.TrimSpace(cfg.IssuerURL) == "" {
		return nil, errors.New("redirect url and issuer url are required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering oidc provider: %w", err)
	}

	return &OIDCProvider{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauthConfig: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       cfg.Scopes,
		},
	}, nil
}

func (p *OIDCProvider) AuthCodeURL(state, nonce string) string {
	return p.oauthConfig.AuthCodeURL(state, oidc.Nonce(nonce))
}

func (p *OIDCProvider) ExchangeAndVerify(ctx context.Context, code, nonce string) (IdentityClaims, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return IdentityClaims{}, fmt.Errorf("exchanging oauth code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return IdentityClaims{}, errors.New("missing id_token in oauth response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return IdentityClaims{}, fmt.Errorf("verifying id token: %w", err)
	}
	if idToken.Nonce != nonce {
		return IdentityClaims{}, errors.New("nonce mismatch")
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return IdentityClaims{}, fmt.Errorf("parsing id token claims: %w", err)
	}

	return IdentityClaims{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}

const (
	adminSessionTTL       = 12 * time.Hour
	adminSessionKeyPrefix = "adminsess:"
)

// AdminAuthService gates the admin dashboard. Access is an email allowlist;
// sessions live in redis. A bcrypt password hash enables a local login path
// for setups without an OAuth client.
type AdminAuthService struct {
	redis        RedisClient
	allowed      map[string]struct{}
	passwordHash string
}

func NewAdminAuthService(redis RedisClient, allowedEmails []string, passwordHash string) *AdminAuthService {
	allowed := make(map[string]struct{}, len(allowedEmails))
	for _, email := range allowedEmails {
		email = strings.TrimSpace(strings.ToLower(email))
		if email != "" {
			allowed[email] = struct{}{}
		}
	}
	return &AdminAuthService{redis: redis, allowed: allowed, passwordHash: passwordHash}
}

func (s *AdminAuthService) IsAllowed(email string) bool {
	_, ok := s.allowed[strings.TrimSpace(strings.ToLower(email))]
	return ok
}

// LoginFromClaims creates a session for a verified, allowlisted identity.
func (s *AdminAuthService) LoginFromClaims(ctx context.Context, claims IdentityClaims) (string, error) {
	if !claims.EmailVerified {
		return "", ErrEmailUnverified
	}
	if !s.IsAllowed(claims.Email) {
		return "", ErrNotAdmin
	}
	return s.createSession(ctx, claims.Email)
}

// LoginWithPassword is the OAuth-free fallback. The email must still be on
// the allowlist.
func (s *AdminAuthService) LoginWithPassword(ctx context.Context, email, password string) (string, error) {
	if s.passwordHash == "" {
		return "", ErrInvalidCredentials
	}
	if !s.IsAllowed(email) {
		return "", ErrNotAdmin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.createSession(ctx, email)
}

func (s *AdminAuthService) createSession(ctx context.Context, email string) (string, error) {
	token, err := generateTicketToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if err := s.redis.Set(ctx, adminSessionKeyPrefix+token, email, adminSessionTTL); err != nil {
		return "", fmt.Errorf("storing admin session: %w", err)
	}
	return token, nil
}

// ValidateSession returns the admin email behind a session token. Valid
// lookups slide the expiry forward.
func (s *AdminAuthService) ValidateSession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidSession
	}
	email, err := s.redis.Get(ctx, adminSessionKeyPrefix+token)
	if err != nil {
		return "", ErrInvalidSession
	}
	if !s.IsAllowed(email) {
		return "", ErrNotAdmin
	}
	_ = s.redis.Expire(ctx, adminSessionKeyPrefix+token, adminSessionTTL)
	return email, nil
}

func (s *AdminAuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	_ = s.redis.Del(ctx, adminSessionKeyPrefix+token)
}
