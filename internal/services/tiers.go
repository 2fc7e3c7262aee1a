package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/velvethours/partyline/internal/models"
)

type TierService struct {
	db DBConn
}

func NewTierService(db DBConn) *TierService {
	return &TierService{db: db}
}

const tierColumns = `id, party_id, name, price_cents, quantity, sort_order, active, created_at`

// TierAvailability pairs a tier with its live seat counts for the dashboard
// and the public registration form.
type TierAvailability struct {
	Tier       models.Tier `json:"tier"`
	Confirmed  int         `json:"confirmed"`
	Waitlisted int         `json:"waitlisted"`
}

func (a TierAvailability) Remaining() int {
	remaining := a.Tier.Quantity - a.Confirmed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *TierService) Create(ctx context.Context, partyID string, params models.TierParams) (*models.Tier, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	tier := &models.Tier{}
	err := s.db.QueryRow(ctx,
		`INSERT INTO tiers (party_id, name, price_cents, quantity, sort_order, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+tierColumns,
		partyID, params.Name, params.PriceCents, params.Quantity, params.SortOrder, params.Active,
	).Scan(&tier.ID, &tier.PartyID, &tier.Name, &tier.PriceCents, &tier.Quantity, &tier.SortOrder, &tier.Active, &tier.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating tier: %w", err)
	}
	return tier, nil
}

func (s *TierService) Update(ctx context.Context, tierID uuid.UUID, params models.TierParams) (*models.Tier, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	tier := &models.Tier{}
	err := s.db.QueryRow(ctx,
		`UPDATE tiers
		 SET name = $1, price_cents = $2, quantity = $3, sort_order = $4, active = $5
		 WHERE id = $6
		 RETURNING `+tierColumns,
		params.Name, params.PriceCents, params.Quantity, params.SortOrder, params.Active, tierID,
	).Scan(&tier.ID, &tier.PartyID, &tier.Name, &tier.PriceCents, &tier.Quantity, &tier.SortOrder, &tier.Active, &tier.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating tier: %w", err)
	}
	return tier, nil
}

func (s *TierService) GetByID(ctx context.Context, tierID uuid.UUID) (*models.Tier, error) {
	tier := &models.Tier{}
	err := s.db.QueryRow(ctx,
		`SELECT `+tierColumns+` FROM tiers WHERE id = $1`, tierID,
	).Scan(&tier.ID, &tier.PartyID, &tier.Name, &tier.PriceCents, &tier.Quantity, &tier.SortOrder, &tier.Active, &tier.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading tier: %w", err)
	}
	return tier, nil
}

// ListWithAvailability returns a party's tiers in sort order with confirmed
// and waitlisted counts attached.
func (s *TierService) ListWithAvailability(ctx context.Context, partyID string) ([]TierAvailability, error) {
	rows, err := s.db.Query(ctx,
		`SELECT t.id, t.party_id, t.name, t.price_cents, t.quantity, t.sort_order, t.active, t.created_at,
		        COUNT(r.id) FILTER (WHERE r.status = $2) AS confirmed,
		        COUNT(r.id) FILTER (WHERE r.status = $3) AS waitlisted
		 FROM tiers t
		 LEFT JOIN registrations r ON r.tier_id = t.id
		 WHERE t.party_id = $1
		 GROUP BY t.id
		 ORDER BY t.sort_order ASC, t.created_at ASC`,
		partyID, models.StatusConfirmed, models.StatusWaitlisted,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tiers: %w", err)
	}
	defer rows.Close()

	tiers := make([]TierAvailability, 0)
	for rows.Next() {
		var entry TierAvailability
		if err := rows.Scan(
			&entry.Tier.ID, &entry.Tier.PartyID, &entry.Tier.Name, &entry.Tier.PriceCents,
			&entry.Tier.Quantity, &entry.Tier.SortOrder, &entry.Tier.Active, &entry.Tier.CreatedAt,
			&entry.Confirmed, &entry.Waitlisted,
		); err != nil {
			return nil, fmt.Errorf("scanning tier: %w", err)
		}
		tiers = append(tiers, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tiers: %w", err)
	}
	return tiers, nil
}
