package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLength = 80
	MaxHandleLength      = 32
)

type RegistrationStatus string

const (
	StatusConfirmed  RegistrationStatus = "confirmed"
	StatusWaitlisted RegistrationStatus = "waitlisted"
	StatusCancelled  RegistrationStatus = "cancelled"
)

func IsValidStatus(s RegistrationStatus) bool {
	switch s {
	case StatusConfirmed, StatusWaitlisted, StatusCancelled:
		return true
	default:
		return false
	}
}

var handlePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// NormalizeHandle lowercases, trims, and strips an email-domain suffix so the
// stored handle matches what the wrapped lookup will later normalize to.
func NormalizeHandle(raw string) string {
	handle := strings.ToLower(strings.TrimSpace(raw))
	if at := strings.Index(handle, "@"); at >= 0 {
		handle = handle[:at]
	}
	return handle
}

func ValidateHandle(handle string) error {
	handle = NormalizeHandle(handle)
	if handle == "" {
		return fmt.Errorf("handle is required")
	}
	if utf8.RuneCountInString(handle) > MaxHandleLength {
		return fmt.Errorf("handle must be at most %d characters", MaxHandleLength)
	}
	if !handlePattern.MatchString(handle) {
		return fmt.Errorf("handle may only contain lowercase letters, digits, dots, dashes, and underscores")
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return fmt.Errorf("email is invalid")
	}
	return nil
}

func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxDisplayNameLength)
	}
	return nil
}

type Registration struct {
	ID           uuid.UUID          `json:"id"`
	PartyID      string             `json:"party_id"`
	TierID       uuid.UUID          `json:"tier_id"`
	Handle       string             `json:"handle"`
	DisplayName  string             `json:"display_name"`
	Email        string             `json:"email"`
	Status       RegistrationStatus `json:"status"`
	WaitlistPos  *int               `json:"waitlist_position,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type CreateRegistrationParams struct {
	PartyID     string
	TierID      uuid.UUID
	Handle      string
	DisplayName string
	Email       string
}

func (p CreateRegistrationParams) Validate() error {
	if strings.TrimSpace(p.PartyID) == "" {
		return fmt.Errorf("party id is required")
	}
	if p.TierID == (uuid.UUID{}) {
		return fmt.Errorf("tier id is required")
	}
	if err := ValidateHandle(p.Handle); err != nil {
		return err
	}
	if err := ValidateDisplayName(p.DisplayName); err != nil {
		return err
	}
	return ValidateEmail(p.Email)
}
