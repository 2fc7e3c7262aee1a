package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/velvethours/partyline/internal/logging"
	"github.com/velvethours/partyline/internal/models"
)

var (
	ErrTierNotFound            = errors.New("tier not found")
	ErrTierInactive            = errors.New("tier is not open for registration")
	ErrTierWrongParty          = errors.New("tier belongs to a different party")
	ErrHandleAlreadyRegistered = errors.New("handle already registered")
	ErrRegistrationNotFound    = errors.New("registration not found")
	ErrNoWaitlistedEntries     = errors.New("no waitlisted registrations for tier")
	ErrTierFull                = errors.New("tier has no free seats")
)

// TicketIssuer is satisfied by TicketService; split out so registration tests
// can stub issuance.
type TicketIssuer interface {
	IssueForRegistration(ctx context.Context, reg *models.Registration) (*models.Ticket, error)
}

// RegistrationMailer sends the post-registration emails. Failures are logged,
// never surfaced to the registrant.
type RegistrationMailer interface {
	SendConfirmation(ctx context.Context, reg *models.Registration, tier *models.Tier, ticket *models.Ticket) error
	SendWaitlisted(ctx context.Context, reg *models.Registration, tier *models.Tier) error
}

type RegistrationService struct {
	db      DB
	tickets TicketIssuer
	mailer  RegistrationMailer
}

func NewRegistrationService(db DB) *RegistrationService {
	return &RegistrationService{db: db}
}

func (s *RegistrationService) SetTicketIssuer(t TicketIssuer) {
	s.tickets = t
}

func (s *RegistrationService) SetMailer(m RegistrationMailer) {
	s.mailer = m
}

const registrationColumns = `id, party_id, tier_id, handle, display_name, email, status, waitlist_position, created_at, updated_at`

func scanRegistration(row Row) (*models.Registration, error) {
	reg := &models.Registration{}
	err := row.Scan(
		&reg.ID,
		&reg.PartyID,
		&reg.TierID,
		&reg.Handle,
		&reg.DisplayName,
		&reg.Email,
		&reg.Status,
		&reg.WaitlistPos,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Create registers an attendee. The tier row is locked for the duration of
// the capacity check so two concurrent registrations cannot both take the
// last seat. Confirmed registrations get a ticket and a confirmation email;
// full tiers waitlist instead of rejecting.
func (s *RegistrationService) Create(ctx context.Context, params models.CreateRegistrationParams) (*models.Registration, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	handle := models.NormalizeHandle(params.Handle)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning registration tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tier, err := lockTier(ctx, tx, params.TierID)
	if err != nil {
		return nil, err
	}
	if tier.PartyID != params.PartyID {
		return nil, ErrTierWrongParty
	}
	if !tier.Active {
		return nil, ErrTierInactive
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM registrations WHERE party_id = $1 AND handle = $2 AND status <> $3)`,
		params.PartyID, handle, models.StatusCancelled,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking existing registration: %w", err)
	}
	if exists {
		return nil, ErrHandleAlreadyRegistered
	}

	confirmed, err := countConfirmed(ctx, tx, tier.ID)
	if err != nil {
		return nil, err
	}

	status := models.StatusConfirmed
	var waitlistPos *int
	if confirmed >= tier.Quantity {
		status = models.StatusWaitlisted
		pos, err := nextWaitlistPosition(ctx, tx, tier.ID)
		if err != nil {
			return nil, err
		}
		waitlistPos = &pos
	}

	reg, err := scanRegistration(tx.QueryRow(ctx,
		`INSERT INTO registrations (party_id, tier_id, handle, display_name, email, status, waitlist_position)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+registrationColumns,
		params.PartyID, tier.ID, handle, params.DisplayName, params.Email, status, waitlistPos,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting registration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing registration: %w", err)
	}

	s.afterStatusChange(ctx, reg, tier)
	return reg, nil
}

// PromoteNext confirms the oldest waitlisted registration in a tier. Admin
// action: cancellation frees a seat but never auto-promotes.
func (s *RegistrationService) PromoteNext(ctx context.Context, tierID uuid.UUID) (*models.Registration, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning promote tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tier, err := lockTier(ctx, tx, tierID)
	if err != nil {
		return nil, err
	}

	confirmed, err := countConfirmed(ctx, tx, tier.ID)
	if err != nil {
		return nil, err
	}
	if confirmed >= tier.Quantity {
		return nil, ErrTierFull
	}

	reg, err := scanRegistration(tx.QueryRow(ctx,
		`UPDATE registrations
		 SET status = $1, waitlist_position = NULL, updated_at = NOW()
		 WHERE id = (
		     SELECT id FROM registrations
		     WHERE tier_id = $2 AND status = $3
		     ORDER BY waitlist_position ASC
		     LIMIT 1
		 )
		 RETURNING `+registrationColumns,
		models.StatusConfirmed, tier.ID, models.StatusWaitlisted,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoWaitlistedEntries
	}
	if err != nil {
		return nil, fmt.Errorf("promoting registration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing promote: %w", err)
	}

	s.afterStatusChange(ctx, reg, tier)
	return reg, nil
}

func (s *RegistrationService) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, err := scanRegistration(s.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading registration: %w", err)
	}
	return reg, nil
}

// List returns a party's registrations, optionally filtered by status.
func (s *RegistrationService) List(ctx context.Context, partyID string, status models.RegistrationStatus) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE party_id = $1`
	args := []any{partyID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	defer rows.Close()

	regs := make([]models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(
			&reg.ID, &reg.PartyID, &reg.TierID, &reg.Handle, &reg.DisplayName,
			&reg.Email, &reg.Status, &reg.WaitlistPos, &reg.CreatedAt, &reg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating registrations: %w", err)
	}
	return regs, nil
}

func (s *RegistrationService) Cancel(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		`UPDATE registrations
		 SET status = $1, waitlist_position = NULL, updated_at = NOW()
		 WHERE id = $2 AND status <> $1`,
		models.StatusCancelled, id,
	)
	if err != nil {
		return fmt.Errorf("cancelling registration: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

func (s *RegistrationService) afterStatusChange(ctx context.Context, reg *models.Registration, tier *models.Tier) {
	switch reg.Status {
	case models.StatusConfirmed:
		var ticket *models.Ticket
		if s.tickets != nil {
			issued, err := s.tickets.IssueForRegistration(ctx, reg)
			if err != nil {
				logging.Error("Ticket issuance failed", map[string]interface{}{
					"registration_id": reg.ID.String(),
					"error":           err.Error(),
				})
			} else {
				ticket = issued
			}
		}
		if s.mailer != nil {
			if err := s.mailer.SendConfirmation(ctx, reg, tier, ticket); err != nil {
				logging.Warn("Confirmation email failed", map[string]interface{}{
					"registration_id": reg.ID.String(),
					"error":           err.Error(),
				})
			}
		}
	case models.StatusWaitlisted:
		if s.mailer != nil {
			if err := s.mailer.SendWaitlisted(ctx, reg, tier); err != nil {
				logging.Warn("Waitlist email failed", map[string]interface{}{
					"registration_id": reg.ID.String(),
					"error":           err.Error(),
				})
			}
		}
	}
}

func lockTier(ctx context.Context, q DBConn, tierID uuid.UUID) (*models.Tier, error) {
	tier := &models.Tier{}
	err := q.QueryRow(ctx,
		`SELECT id, party_id, name, price_cents, quantity, sort_order, active, created_at
		 FROM tiers WHERE id = $1 FOR UPDATE`,
		tierID,
	).Scan(&tier.ID, &tier.PartyID, &tier.Name, &tier.PriceCents, &tier.Quantity, &tier.SortOrder, &tier.Active, &tier.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking tier: %w", err)
	}
	return tier, nil
}

func countConfirmed(ctx context.Context, q DBConn, tierID uuid.UUID) (int, error) {
	var count int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE tier_id = $1 AND status = $2`,
		tierID, models.StatusConfirmed,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting confirmed registrations: %w", err)
	}
	return count, nil
}

func nextWaitlistPosition(ctx context.Context, q DBConn, tierID uuid.UUID) (int, error) {
	var pos int
	err := q.QueryRow(ctx,
		`SELECT COALESCE(MAX(waitlist_position), 0) + 1 FROM registrations WHERE tier_id = $1 AND status = $2`,
		tierID, models.StatusWaitlisted,
	).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("computing waitlist position: %w", err)
	}
	return pos, nil
}
