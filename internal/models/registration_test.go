package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNormalizeHandle(t *testing.T) {
	cases := map[string]string{
		"JDoe":                "jdoe",
		" jdoe@andrew.edu ":   "jdoe",
		"Jdoe@Example.com":    "jdoe",
		"a.b-c_d":             "a.b-c_d",
	}
	for raw, want := range cases {
		if got := NormalizeHandle(raw); got != want {
			t.Fatalf("NormalizeHandle(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestValidateHandle(t *testing.T) {
	valid := []string{"jdoe", "JDOE@andrew.edu", "a1", "j.doe-x_2"}
	for _, h := range valid {
		if err := ValidateHandle(h); err != nil {
			t.Fatalf("expected %q valid, got %v", h, err)
		}
	}

	invalid := []string{"", "  ", ".leading", strings.Repeat("a", MaxHandleLength+1), "has space", "uh!oh"}
	for _, h := range invalid {
		if err := ValidateHandle(h); err == nil {
			t.Fatalf("expected %q invalid", h)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	for _, e := range []string{"a@b.com", "jdoe@andrew.cmu.edu"} {
		if err := ValidateEmail(e); err != nil {
			t.Fatalf("expected %q valid, got %v", e, err)
		}
	}
	for _, e := range []string{"", "nope", "@b.com", "a@", "a@nodot"} {
		if err := ValidateEmail(e); err == nil {
			t.Fatalf("expected %q invalid", e)
		}
	}
}

func TestCreateRegistrationParams_Validate(t *testing.T) {
	base := CreateRegistrationParams{
		PartyID:     "valentines-2026",
		TierID:      uuid.New(),
		Handle:      "jdoe",
		DisplayName: "Jane Doe",
		Email:       "jdoe@andrew.cmu.edu",
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}

	missingTier := base
	missingTier.TierID = uuid.UUID{}
	if err := missingTier.Validate(); err == nil {
		t.Fatal("expected tier id to be required")
	}

	badName := base
	badName.DisplayName = "   "
	if err := badName.Validate(); err == nil {
		t.Fatal("expected name to be required")
	}
}

func TestTierPriceLabel(t *testing.T) {
	if got := (Tier{PriceCents: 0}).PriceLabel(); got != "Free" {
		t.Fatalf("expected Free, got %q", got)
	}
	if got := (Tier{PriceCents: 1550}).PriceLabel(); got != "$15.50" {
		t.Fatalf("expected $15.50, got %q", got)
	}
	if got := (Tier{PriceCents: 5}).PriceLabel(); got != "$0.05" {
		t.Fatalf("expected $0.05, got %q", got)
	}
}

func TestTierParams_Validate(t *testing.T) {
	if err := (TierParams{Name: "GA", PriceCents: 1000, Quantity: 100}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (TierParams{Name: "", Quantity: 1}).Validate(); err == nil {
		t.Fatal("expected name required")
	}
	if err := (TierParams{Name: "GA", PriceCents: -1}).Validate(); err == nil {
		t.Fatal("expected negative price rejected")
	}
}
