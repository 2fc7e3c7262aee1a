package wrapped

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CardType tags a card with its presentation treatment. Opaque to this
// package; the client maps it to a layout.
type CardType string

const (
	CardIntro       CardType = "intro"
	CardLoading     CardType = "loading"
	CardReveal      CardType = "reveal"
	CardSpectrum    CardType = "spectrum"
	CardPersonality CardType = "personality"
	CardTransition  CardType = "transition"
	CardFullReveal  CardType = "full_reveal"
)

// LockedBody is what a gated card shows before its gate passes: a label plus
// the countdown target, both raw and pre-rendered in the display timezone.
type LockedBody struct {
	Label       string    `json:"label"`
	UnlockLabel string    `json:"unlock_label"`
	UnlocksAt   time.Time `json:"unlocks_at"`
}

// CardBody is the revealed content of a card.
type CardBody struct {
	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	ViewerValue string `json:"viewer_value,omitempty"`
	MatchValue  string `json:"match_value,omitempty"`
	Score       int    `json:"score,omitempty"`
}

// Card is one ordered content block. Exactly one of Locked/Unlocked is set:
// gated content is withheld server-side until its timestamp passes. A card
// with no gate is always unlocked.
type Card struct {
	ID       string      `json:"id"`
	Type     CardType    `json:"type"`
	Gate     GateKey     `json:"gate,omitempty"`
	Locked   *LockedBody `json:"locked,omitempty"`
	Unlocked *CardBody   `json:"unlocked,omitempty"`
}

// Theme is an opaque styling token bundle passed through to the client.
type Theme struct {
	Name       string `json:"name"`
	Background string `json:"background"`
	Accent     string `json:"accent"`
	TextColor  string `json:"text_color"`
}

var defaultTheme = Theme{
	Name:       "velvet",
	Background: "#1a0a12",
	Accent:     "#ff4d7e",
	TextColor:  "#fdf2f6",
}

type ScriptMeta struct {
	PartyID    string         `json:"party_id"`
	ViewerName string         `json:"viewer_name"`
	Now        time.Time      `json:"now"`
	Schedule   UnlockSchedule `json:"schedule"`
	Gates      GateState      `json:"gates"`
}

// WrappedScript is the root build output: recomputed per request, never
// mutated or persisted.
type WrappedScript struct {
	Meta  ScriptMeta `json:"meta"`
	Theme Theme      `json:"theme"`
	Cards []Card     `json:"cards"`
}

// RowSource supplies the full row set for a party's matching table. Transport
// failures are the only hard error in a script build.
type RowSource interface {
	FetchAll(ctx context.Context, partyID string) ([]Row, error)
}

// Builder assembles wrapped scripts. Stateless between calls; safe to invoke
// arbitrarily often with identical results for identical inputs.
type Builder struct {
	schedule UnlockSchedule
	loc      *time.Location
	rows     RowSource
	now      func() time.Time
}

func NewBuilder(schedule UnlockSchedule, displayLoc *time.Location, rows RowSource) *Builder {
	if displayLoc == nil {
		displayLoc = time.UTC
	}
	return &Builder{
		schedule: schedule,
		loc:      displayLoc,
		rows:     rows,
		now:      time.Now,
	}
}

// WithClock fixes the builder's wall clock. Tests use this; production keeps
// the time.Now default.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) BuildScript(ctx context.Context, partyID, viewerHandle string) (*WrappedScript, error) {
	return b.BuildScriptAt(ctx, partyID, viewerHandle, b.now())
}

// BuildScriptAt builds the full reveal script as of now. Missing viewer or
// match data degrades to placeholders; only a row-store failure errors.
func (b *Builder) BuildScriptAt(ctx context.Context, partyID, viewerHandle string, now time.Time) (*WrappedScript, error) {
	handle := NormalizeHandle(viewerHandle)

	rows, err := b.rows.FetchAll(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("fetching match rows: %w", err)
	}

	viewer := UnknownParticipant
	match := UnknownParticipant
	if viewerRow, ok := FindRowByHandle(rows, handle); ok {
		viewer = ParticipantFromRow(viewerRow)
		if matchRow, ok := ResolveMatchRow(viewerRow, rows); ok {
			match = ParticipantFromRow(matchRow)
		} else {
			match = StubParticipant(
				ResolveField(viewerRow, matchNameAliases),
				ResolveField(viewerRow, matchHandleAliases),
			)
		}
	}

	gates := ComputeGateState(now, b.schedule)
	score := OverlapScore(viewer.Hobbies, match.Hobbies)

	script := &WrappedScript{
		Meta: ScriptMeta{
			PartyID:    partyID,
			ViewerName: viewer.Name,
			Now:        now,
			Schedule:   b.schedule,
			Gates:      gates,
		},
		Theme: defaultTheme,
		Cards: b.assembleCards(viewer, match, score, gates),
	}
	return script, nil
}

func (b *Builder) assembleCards(viewer, match Participant, score int, gates GateState) []Card {
	cards := []Card{
		{
			ID:   "intro",
			Type: CardIntro,
			Unlocked: &CardBody{
				Title:    "Your Match, Wrapped",
				Subtitle: "Hey " + viewer.Name + ", your night is about to unfold.",
			},
		},
		{
			ID:   "loading",
			Type: CardLoading,
			Unlocked: &CardBody{
				Title: "Crunching the numbers...",
			},
		},
	}

	cards = append(cards, b.gatedCard("major-minor", CardReveal, GateMajorMinor, gates, CardBody{
		Title:       "What they study",
		ViewerValue: viewer.MajorMinor,
		MatchValue:  match.MajorMinor,
	}, "Their major & minor"))

	cards = append(cards, b.gatedCard("hometown", CardReveal, GateHometown, gates, CardBody{
		Title:       "Where they're from",
		ViewerValue: viewer.Hometown,
		MatchValue:  match.Hometown,
	}, "Their hometown"))

	cards = append(cards, b.gatedCard("hobbies", CardReveal, GateHobbies, gates, CardBody{
		Title:       "What they're into",
		ViewerValue: hobbiesOrPlaceholder(viewer.Hobbies),
		MatchValue:  hobbiesOrPlaceholder(match.Hobbies),
	}, "Their hobbies"))

	cards = append(cards, b.gatedCard("spectrum", CardSpectrum, GateHobbies, gates, CardBody{
		Title: "Compatibility spectrum",
		Score: score,
	}, "Your compatibility score"))

	cards = append(cards, b.gatedCard("personality", CardPersonality, GateHobbies, gates, CardBody{
		Title:       "Personality check",
		ViewerValue: viewer.Personality,
		MatchValue:  match.Personality,
	}, "Their personality type"))

	cards = append(cards, Card{
		ID:   "pre-reveal",
		Type: CardTransition,
		Unlocked: &CardBody{
			Title:    "Almost time",
			Subtitle: "The big reveal is coming up.",
		},
	})

	cards = append(cards, b.gatedCard("full-reveal", CardFullReveal, GateFull, gates, CardBody{
		Title:       "Your match is...",
		Subtitle:    match.Name,
		ViewerValue: viewer.Name,
		MatchValue:  match.Name,
	}, "The full reveal"))

	return cards
}

func (b *Builder) gatedCard(id string, cardType CardType, gate GateKey, gates GateState, body CardBody, lockedLabel string) Card {
	card := Card{ID: id, Type: cardType, Gate: gate}
	if gates.Unlocked(gate) {
		unlocked := body
		card.Unlocked = &unlocked
		return card
	}
	ts, _ := b.schedule.At(gate)
	card.Locked = &LockedBody{
		Label:       lockedLabel,
		UnlockLabel: "Unlocks " + ts.In(b.loc).Format("Mon 3:04 PM MST"),
		UnlocksAt:   ts,
	}
	return card
}

func hobbiesOrPlaceholder(hobbies string) string {
	if strings.TrimSpace(hobbies) == "" {
		return undisclosed
	}
	return hobbies
}

// OverlapScore is the illustrative compatibility percentage: 40 base plus 14
// per distinct shared hobby term, capped at 98.
func OverlapScore(viewerHobbies, matchHobbies string) int {
	shared := sharedHobbyCount(viewerHobbies, matchHobbies)
	score := 40 + 14*shared
	if score > 98 {
		return 98
	}
	return score
}

func sharedHobbyCount(a, b string) int {
	setA := hobbySet(a)
	setB := hobbySet(b)
	count := 0
	for hobby := range setA {
		if setB[hobby] {
			count++
		}
	}
	return count
}

func hobbySet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, part := range strings.Split(list, ",") {
		hobby := strings.ToLower(strings.TrimSpace(part))
		if hobby != "" {
			set[hobby] = true
		}
	}
	return set
}
