package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parimut/pool-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Amounts are BIGINT in the smallest currency unit.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateMarket(ctx context.Context, m *model.Market) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO markets (id, question, close_time, resolved, outcome, yes_pool, no_pool, claimed_total, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		int64(m.ID), m.Question, m.CloseTime, m.Resolved, string(m.Outcome),
		int64(m.YesPool), int64(m.NoPool), int64(m.ClaimedTotal), m.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetMarket(ctx context.Context, id uint64) (*model.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, question, close_time, resolved, outcome, yes_pool, no_pool, claimed_total, created_at
		 FROM markets WHERE id = $1`, int64(id))

	m, err := scanMarket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("market %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get market %d: %w", id, err)
	}
	return m, nil
}

func (s *PostgresStore) MarketCount(ctx context.Context) (uint64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&count); err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (s *PostgresStore) MarketIDs(ctx context.Context, start, count uint64) ([]uint64, error) {
	ids := []uint64{}
	if start < 1 || count == 0 {
		return ids, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id FROM markets WHERE id >= $1 ORDER BY id LIMIT $2`,
		int64(start), int64(count))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}

func (s *PostgresStore) RecordBet(ctx context.Context, e *model.LedgerEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	yesDelta, noDelta := int64(e.Amount), int64(0)
	if e.Side == model.SideNo {
		yesDelta, noDelta = 0, int64(e.Amount)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO positions (market_id, participant, yes_stake, no_stake, claimed)
		 VALUES ($1, $2, $3, $4, FALSE)
		 ON CONFLICT (market_id, participant) DO UPDATE
		 SET yes_stake = positions.yes_stake + EXCLUDED.yes_stake,
		     no_stake  = positions.no_stake  + EXCLUDED.no_stake`,
		int64(e.MarketID), e.Participant, yesDelta, noDelta,
	); err != nil {
		return fmt.Errorf("record bet position: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE markets SET yes_pool = yes_pool + $2, no_pool = no_pool + $3 WHERE id = $1`,
		int64(e.MarketID), yesDelta, noDelta)
	if err != nil {
		return fmt.Errorf("record bet pool: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("market %d: %w", e.MarketID, ErrNotFound)
	}

	if err := insertLedgerEntry(ctx, tx, e); err != nil {
		return fmt.Errorf("record bet ledger: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) SetResolved(ctx context.Context, id uint64, outcome model.Side) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET resolved = TRUE, outcome = $2 WHERE id = $1`,
		int64(id), string(outcome))
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("market %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) RecordClaim(ctx context.Context, id uint64, participant string, amount uint64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE positions SET claimed = TRUE
		 WHERE market_id = $1 AND participant = $2 AND claimed = FALSE`,
		int64(id), participant)
	if err != nil {
		return fmt.Errorf("record claim position: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("claim for %s on market %d: %w", participant, id, ErrConflict)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE markets SET claimed_total = claimed_total + $2 WHERE id = $1`,
		int64(id), int64(amount)); err != nil {
		return fmt.Errorf("record claim total: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) RevertClaim(ctx context.Context, id uint64, participant string, amount uint64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE positions SET claimed = FALSE
		 WHERE market_id = $1 AND participant = $2 AND claimed = TRUE`,
		int64(id), participant)
	if err != nil {
		return fmt.Errorf("revert claim position: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("revert claim for %s on market %d: %w", participant, id, ErrConflict)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE markets SET claimed_total = claimed_total - $2 WHERE id = $1`,
		int64(id), int64(amount)); err != nil {
		return fmt.Errorf("revert claim total: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetPosition(ctx context.Context, id uint64, participant string) (*model.Position, error) {
	pos := &model.Position{MarketID: id, Participant: participant}
	var yesStake, noStake int64

	err := s.pool.QueryRow(ctx,
		`SELECT yes_stake, no_stake, claimed
		 FROM positions WHERE market_id = $1 AND participant = $2`,
		int64(id), participant).
		Scan(&yesStake, &noStake, &pos.Claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		// Never bet: zero-valued position.
		return pos, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}

	pos.YesStake = uint64(yesStake)
	pos.NoStake = uint64(noStake)
	return pos, nil
}

func (s *PostgresStore) AppendLedger(ctx context.Context, e *model.LedgerEntry) error {
	return insertLedgerEntry(ctx, s.pool, e)
}

func (s *PostgresStore) LedgerByMarket(ctx context.Context, id uint64) ([]model.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, market_id, participant, kind, side, amount, created_at
		 FROM ledger_entries WHERE market_id = $1 ORDER BY created_at, id`,
		int64(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var marketID, amount int64
		var side string

		if err := rows.Scan(&e.ID, &marketID, &e.Participant, &e.Kind, &side, &amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.MarketID = uint64(marketID)
		e.Side = model.Side(side)
		e.Amount = uint64(amount)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// execer covers both pgxpool.Pool and pgx.Tx for ledger inserts.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertLedgerEntry(ctx context.Context, db execer, e *model.LedgerEntry) error {
	_, err := db.Exec(ctx,
		`INSERT INTO ledger_entries (id, market_id, participant, kind, side, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, int64(e.MarketID), e.Participant, e.Kind, string(e.Side), int64(e.Amount), e.CreatedAt)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMarket(row scanner) (*model.Market, error) {
	var m model.Market
	var id, yesPool, noPool, claimedTotal int64
	var outcome string

	if err := row.Scan(&id, &m.Question, &m.CloseTime, &m.Resolved, &outcome,
		&yesPool, &noPool, &claimedTotal, &m.CreatedAt); err != nil {
		return nil, err
	}

	m.ID = uint64(id)
	m.Outcome = model.Side(outcome)
	m.YesPool = uint64(yesPool)
	m.NoPool = uint64(noPool)
	m.ClaimedTotal = uint64(claimedTotal)
	return &m, nil
}
