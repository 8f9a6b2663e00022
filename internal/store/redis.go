package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parimut/pool-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for market and position records. Writes go to the primary store
// and invalidate the cache; reads check Redis first then fall back to the
// primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Writes (write to primary, invalidate cache) ---

func (s *CachedStore) CreateMarket(ctx context.Context, m *model.Market) error {
	if err := s.primary.CreateMarket(ctx, m); err != nil {
		return err
	}
	s.cacheMarket(ctx, m)
	return nil
}

func (s *CachedStore) RecordBet(ctx context.Context, e *model.LedgerEntry) error {
	if err := s.primary.RecordBet(ctx, e); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(e.MarketID), positionKey(e.MarketID, e.Participant))
	return nil
}

func (s *CachedStore) SetResolved(ctx context.Context, id uint64, outcome model.Side) error {
	if err := s.primary.SetResolved(ctx, id, outcome); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(id))
	return nil
}

func (s *CachedStore) RecordClaim(ctx context.Context, id uint64, participant string, amount uint64) error {
	if err := s.primary.RecordClaim(ctx, id, participant, amount); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(id), positionKey(id, participant))
	return nil
}

func (s *CachedStore) RevertClaim(ctx context.Context, id uint64, participant string, amount uint64) error {
	if err := s.primary.RevertClaim(ctx, id, participant, amount); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(id), positionKey(id, participant))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetMarket(ctx context.Context, id uint64) (*model.Market, error) {
	data, err := s.rdb.Get(ctx, marketKey(id)).Bytes()
	if err == nil {
		var m model.Market
		if json.Unmarshal(data, &m) == nil {
			return &m, nil
		}
	}

	m, err := s.primary.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheMarket(ctx, m)
	return m, nil
}

func (s *CachedStore) GetPosition(ctx context.Context, id uint64, participant string) (*model.Position, error) {
	data, err := s.rdb.Get(ctx, positionKey(id, participant)).Bytes()
	if err == nil {
		var pos model.Position
		if json.Unmarshal(data, &pos) == nil {
			return &pos, nil
		}
	}

	pos, err := s.primary.GetPosition(ctx, id, participant)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(pos); err == nil {
		s.rdb.Set(ctx, positionKey(id, participant), data, s.ttl)
	}
	return pos, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) MarketCount(ctx context.Context) (uint64, error) {
	return s.primary.MarketCount(ctx)
}

func (s *CachedStore) MarketIDs(ctx context.Context, start, count uint64) ([]uint64, error) {
	return s.primary.MarketIDs(ctx, start, count)
}

func (s *CachedStore) AppendLedger(ctx context.Context, e *model.LedgerEntry) error {
	return s.primary.AppendLedger(ctx, e)
}

func (s *CachedStore) LedgerByMarket(ctx context.Context, id uint64) ([]model.LedgerEntry, error) {
	return s.primary.LedgerByMarket(ctx, id)
}

// --- Cache helpers ---

func (s *CachedStore) cacheMarket(ctx context.Context, m *model.Market) {
	if data, err := json.Marshal(m); err == nil {
		s.rdb.Set(ctx, marketKey(m.ID), data, s.ttl)
	}
}

func marketKey(id uint64) string { return fmt.Sprintf("market:%d", id) }

func positionKey(id uint64, participant string) string {
	return fmt.Sprintf("position:%d:%s", id, participant)
}
