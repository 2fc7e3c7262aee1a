package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/velvethours/partyline/internal/logging"
	"github.com/velvethours/partyline/internal/wrapped"
)

var ErrEmptyImport = errors.New("import contains no data rows")

// MatchRowStore persists the matchmaking sheet rows as JSONB, one row per
// participant, preserving whatever headers the sheet came with.
type MatchRowStore struct {
	db DB
}

func NewMatchRowStore(db DB) *MatchRowStore {
	return &MatchRowStore{db: db}
}

// FetchAll returns a party's rows in insertion order.
func (s *MatchRowStore) FetchAll(ctx context.Context, partyID string) ([]wrapped.Row, error) {
	rows, err := s.db.Query(ctx,
		`SELECT data FROM match_rows WHERE party_id = $1 ORDER BY id ASC`, partyID)
	if err != nil {
		return nil, fmt.Errorf("loading match rows: %w", err)
	}
	defer rows.Close()

	result := make([]wrapped.Row, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning match row: %w", err)
		}
		row := wrapped.Row{}
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("decoding match row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating match rows: %w", err)
	}
	return result, nil
}

// ImportCSV replaces a party's entire row set with the contents of a CSV
// export. The first record is the header row; later records map header to
// cell verbatim so field resolution can handle renamed columns.
func (s *MatchRowStore) ImportCSV(ctx context.Context, partyID string, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("reading csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	imported := make([]wrapped.Row, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("reading csv record: %w", err)
		}
		row := wrapped.Row{}
		for i, cell := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			row[header[i]] = strings.TrimSpace(cell)
		}
		if len(row) == 0 {
			continue
		}
		imported = append(imported, row)
	}
	if len(imported) == 0 {
		return 0, ErrEmptyImport
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning import tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM match_rows WHERE party_id = $1`, partyID); err != nil {
		return 0, fmt.Errorf("clearing match rows: %w", err)
	}
	for _, row := range imported {
		data, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("encoding match row: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO match_rows (party_id, data) VALUES ($1, $2)`, partyID, data); err != nil {
			return 0, fmt.Errorf("inserting match row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return len(imported), nil
}

const matchRowCacheTTL = 60 * time.Second

// CachedRowSource caches FetchAll results in redis. Cache failures degrade
// to direct reads; the script endpoint never breaks because redis is down.
type CachedRowSource struct {
	source wrapped.RowSource
	redis  RedisClient
	ttl    time.Duration
}

func NewCachedRowSource(source wrapped.RowSource, redis RedisClient) *CachedRowSource {
	return &CachedRowSource{source: source, redis: redis, ttl: matchRowCacheTTL}
}

func matchRowCacheKey(partyID string) string {
	return "matchrows:" + partyID
}

func (c *CachedRowSource) FetchAll(ctx context.Context, partyID string) ([]wrapped.Row, error) {
	key := matchRowCacheKey(partyID)
	if cached, err := c.redis.Get(ctx, key); err == nil {
		var rows []wrapped.Row
		if err := json.Unmarshal([]byte(cached), &rows); err == nil {
			return rows, nil
		}
		logging.Warn("Discarding corrupt match row cache entry", map[string]interface{}{"key": key})
	}

	rows, err := c.source.FetchAll(ctx, partyID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rows); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl); err != nil {
			logging.Warn("Match row cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return rows, nil
}

// Invalidate drops a party's cached rows. Called after every import.
func (c *CachedRowSource) Invalidate(ctx context.Context, partyID string) {
	if err := c.redis.Del(ctx, matchRowCacheKey(partyID)); err != nil {
		logging.Warn("Match row cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}
