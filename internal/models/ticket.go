package models

import (
	"time"

	"github.com/google/uuid"
)

type Ticket struct {
	ID             uuid.UUID  `json:"id"`
	RegistrationID uuid.UUID  `json:"registration_id"`
	PartyID        string     `json:"party_id"`
	Token          string     `json:"token"`
	IssuedAt       time.Time  `json:"issued_at"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
}

func (t *Ticket) IsCheckedIn() bool {
	return t.CheckedInAt != nil
}
