package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/velvethours/partyline/internal/logging"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Email    EmailConfig
	Party    PartyConfig
	Wrapped  WrappedConfig
	OAuth    OAuthConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Secure      bool   // Use HTTPS-only cookies
	Environment string // "development", "production", "test"
	Debug       bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type EmailConfig struct {
	Provider     string // "resend", "console"
	FromAddress  string
	FromName     string
	BaseURL      string // Application base URL for links
	ResendAPIKey string
}

// PartyConfig identifies the single party this deployment serves.
type PartyConfig struct {
	ID       string
	Name     string
	Timezone string // IANA name used for human-readable unlock labels
}

// WrappedConfig carries the fixed unlock schedule for the match wrapped reveal.
// Timestamps are RFC3339 and expected (not enforced) to be non-decreasing.
type WrappedConfig struct {
	MajorMinorAt time.Time
	HometownAt   time.Time
	HobbiesAt    time.Time
	FullAt       time.Time
}

type OAuthConfig struct {
	AdminEmails       []string
	AdminPasswordHash string // bcrypt, local-dev fallback when OIDC is disabled
	Google            OAuthProviderConfig
}

type OAuthProviderConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RedirectURL  string
	IssuerURL    string
	Scopes       []string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Secure:      getEnvBool("SERVER_SECURE", false),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "partyline"),
			Password: getEnv("DB_PASSWORD", "partyline"),
			DBName:   getEnv("DB_NAME", "partyline"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Email: EmailConfig{
			Provider:     getEnv("EMAIL_PROVIDER", "console"),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "tickets@partyline.events"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Partyline"),
			BaseURL:      getEnv("APP_BASE_URL", "http://localhost:8080"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		},
		Party: PartyConfig{
			ID:       getEnvNonEmpty("PARTY_ID", "valentines-2026"),
			Name:     getEnvNonEmpty("PARTY_NAME", "Valentine's Party 2026"),
			Timezone: getEnvNonEmpty("PARTY_TIMEZONE", "America/New_York"),
		},
		Wrapped: WrappedConfig{
			MajorMinorAt: getEnvTime("WRAPPED_MAJOR_MINOR_AT", mustParseTime("2026-02-11T21:00:00-05:00")),
			HometownAt:   getEnvTime("WRAPPED_HOMETOWN_AT", mustParseTime("2026-02-11T21:20:00-05:00")),
			HobbiesAt:    getEnvTime("WRAPPED_HOBBIES_AT", mustParseTime("2026-02-11T21:40:00-05:00")),
			FullAt:       getEnvTime("WRAPPED_FULL_AT", mustParseTime("2026-02-11T22:00:00-05:00")),
		},
		OAuth: OAuthConfig{
			AdminEmails:       getEnvList("ADMIN_EMAILS", nil),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			Google: OAuthProviderConfig{
				Enabled:      getEnvBool("GOOGLE_OAUTH_ENABLED", false),
				ClientID:     getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
				ClientSecret: getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("GOOGLE_OAUTH_REDIRECT_URL", ""),
				IssuerURL:    getEnvNonEmpty("GOOGLE_OIDC_ISSUER_URL", "https://accounts.google.com"),
				Scopes:       getEnvList("GOOGLE_OIDC_SCOPES", []string{"openid", "email", "profile"}),
			},
		},
	}

	warnIfScheduleOutOfOrder(cfg.Wrapped)

	return cfg, nil
}

// The gate engine is total over any ordering, so an out-of-order schedule is
// a warning, not an error.
func warnIfScheduleOutOfOrder(w WrappedConfig) {
	ordered := []time.Time{w.MajorMinorAt, w.HometownAt, w.HobbiesAt, w.FullAt}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Before(ordered[i-1]) {
			logging.Warn("Unlock schedule is not non-decreasing", map[string]interface{}{
				"position": i,
				"value":    ordered[i].Format(time.RFC3339),
			})
		}
	}
}

func mustParseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in timestamp %q: %v", value, err))
	}
	return t
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvNonEmpty(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if strings.TrimSpace(value) != "" {
			return value
		}
		return defaultValue
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvTime(key string, defaultValue time.Time) time.Time {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t
		}
		logging.Warn("Invalid timestamp in env; using default", map[string]interface{}{
			"key":     key,
			"value":   value,
			"default": defaultValue.Format(time.RFC3339),
		})
	}
	return defaultValue
}

func getEnvList(key string, defaultValues []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return defaultValues
		}
		parts := strings.Split(trimmed, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			item := strings.TrimSpace(part)
			if item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return defaultValues
}
