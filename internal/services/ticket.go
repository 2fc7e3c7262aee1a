package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/velvethours/partyline/internal/logging"
	"github.com/velvethours/partyline/internal/models"
)

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrTicketAlreadyUsed = errors.New("ticket already checked in")
	ErrCheckinBusy       = errors.New("ticket is being checked in")
)

const checkinLockTTL = 10 * time.Second

type TicketService struct {
	db    DBConn
	redis RedisClient
}

func NewTicketService(db DBConn) *TicketService {
	return &TicketService{db: db}
}

// SetRedis enables the per-token check-in lock. Without redis the conditional
// UPDATE alone still guarantees single use.
func (s *TicketService) SetRedis(redis RedisClient) {
	s.redis = redis
}

const ticketColumns = `id, registration_id, party_id, token, issued_at, checked_in_at`

func scanTicket(row Row) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	err := row.Scan(
		&ticket.ID,
		&ticket.RegistrationID,
		&ticket.PartyID,
		&ticket.Token,
		&ticket.IssuedAt,
		&ticket.CheckedInAt,
	)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// IssueForRegistration creates the registration's ticket, or returns the
// existing one; issuance is idempotent per registration.
func (s *TicketService) IssueForRegistration(ctx context.Context, reg *models.Registration) (*models.Ticket, error) {
	existing, err := scanTicket(s.db.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE registration_id = $1`, reg.ID))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("loading existing ticket: %w", err)
	}

	token, err := generateTicketToken()
	if err != nil {
		return nil, err
	}

	ticket, err := scanTicket(s.db.QueryRow(ctx,
		`INSERT INTO tickets (registration_id, party_id, token)
		 VALUES ($1, $2, $3)
		 RETURNING `+ticketColumns,
		reg.ID, reg.PartyID, token,
	))
	if err != nil {
		return nil, fmt.Errorf("issuing ticket: %w", err)
	}
	return ticket, nil
}

func (s *TicketService) GetByToken(ctx context.Context, token string) (*models.Ticket, error) {
	ticket, err := scanTicket(s.db.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE token = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading ticket: %w", err)
	}
	return ticket, nil
}

// ViewerHandleForToken maps a presented ticket token to the registered
// handle. The wrapped endpoint trusts the handle this returns.
func (s *TicketService) ViewerHandleForToken(ctx context.Context, token string) (string, error) {
	var handle string
	err := s.db.QueryRow(ctx,
		`SELECT r.handle
		 FROM tickets t
		 JOIN registrations r ON r.id = t.registration_id
		 WHERE t.token = $1`,
		token,
	).Scan(&handle)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrTicketNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolving ticket handle: %w", err)
	}
	return handle, nil
}

// CheckIn consumes a ticket at the door. A second scan returns
// ErrTicketAlreadyUsed together with the ticket, so staff see the original
// check-in time.
func (s *TicketService) CheckIn(ctx context.Context, token string) (*models.Ticket, error) {
	if s.redis != nil {
		acquired, err := s.redis.SetNX(ctx, "checkin:"+token, 1, checkinLockTTL)
		if err != nil {
			logging.Warn("Check-in lock unavailable", map[string]interface{}{"error": err.Error()})
		} else if !acquired {
			return nil, ErrCheckinBusy
		} else {
			defer func() {
				if err := s.redis.Del(context.WithoutCancel(ctx), "checkin:"+token); err != nil {
					logging.Warn("Check-in lock release failed", map[string]interface{}{"error": err.Error()})
				}
			}()
		}
	}

	ticket, err := scanTicket(s.db.QueryRow(ctx,
		`UPDATE tickets
		 SET checked_in_at = NOW()
		 WHERE token = $1 AND checked_in_at IS NULL
		 RETURNING `+ticketColumns,
		token,
	))
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("checking in ticket: %w", err)
	}

	existing, lookupErr := s.GetByToken(ctx, token)
	if lookupErr != nil {
		return nil, lookupErr
	}
	return existing, ErrTicketAlreadyUsed
}

func generateTicketToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate ticket token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
