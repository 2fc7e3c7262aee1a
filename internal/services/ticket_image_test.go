package services

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/velvethours/partyline/internal/models"
)

func TestRenderPassPNG_ProducesDecodableImage(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}

	reg := &models.Registration{Handle: "jdoe", DisplayName: "Jordan Doe"}
	ticket := &models.Ticket{Token: "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899", IssuedAt: testNow}

	data, err := RenderPassPNG("Velvet Hours", reg, ticket, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding png: %v", err)
	}
	if cfg.Width != 720 || cfg.Height != 360 {
		t.Fatalf("unexpected dimensions: %dx%d", cfg.Width, cfg.Height)
	}
}

func TestRenderPassPNG_DeterministicForSameTicket(t *testing.T) {
	loc := time.UTC
	reg := &models.Registration{Handle: "jdoe", DisplayName: "Jordan Doe"}
	checked := testNow.Add(time.Hour)
	ticket := &models.Ticket{Token: "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff", IssuedAt: testNow, CheckedInAt: &checked}

	first, err := RenderPassPNG("Velvet Hours", reg, ticket, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := RenderPassPNG("Velvet Hours", reg, ticket, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected identical renders for identical input")
	}
}

func TestShortToken(t *testing.T) {
	if got := shortToken("abcdef"); got != "ABCDEF" {
		t.Fatalf("unexpected short token: %q", got)
	}
	long := "aabbccddeeff00112233445566778899"
	if got := shortToken(long); got != "AABBCC...778899" {
		t.Fatalf("unexpected short token: %q", got)
	}
}
