package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/parimut/pool-engine/internal/model"
)

type posKey struct {
	marketID    uint64
	participant string
}

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	markets   map[uint64]*model.Market
	positions map[posKey]*model.Position
	ledger    []model.LedgerEntry
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markets:   make(map[uint64]*model.Market),
		positions: make(map[posKey]*model.Position),
	}
}

func (s *MemoryStore) CreateMarket(_ context.Context, m *model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.markets[m.ID]; exists {
		return fmt.Errorf("market %d already exists: %w", m.ID, ErrConflict)
	}

	// Store a copy to avoid external mutation.
	cp := *m
	s.markets[m.ID] = &cp
	return nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id uint64) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return nil, fmt.Errorf("market %d: %w", id, ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) MarketCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.markets)), nil
}

func (s *MemoryStore) MarketIDs(_ context.Context, start, count uint64) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// IDs are sequential from 1 and markets are never deleted, so the
	// page is computable without scanning.
	total := uint64(len(s.markets))
	ids := []uint64{}
	if start < 1 || start > total {
		return ids, nil
	}
	for id := start; id <= total && uint64(len(ids)) < count; id++ {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) RecordBet(_ context.Context, e *model.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[e.MarketID]
	if !ok {
		return fmt.Errorf("market %d: %w", e.MarketID, ErrNotFound)
	}

	key := posKey{e.MarketID, e.Participant}
	pos, ok := s.positions[key]
	if !ok {
		pos = &model.Position{MarketID: e.MarketID, Participant: e.Participant}
		s.positions[key] = pos
	}

	if e.Side == model.SideYes {
		pos.YesStake += e.Amount
		m.YesPool += e.Amount
	} else {
		pos.NoStake += e.Amount
		m.NoPool += e.Amount
	}
	s.ledger = append(s.ledger, *e)
	return nil
}

func (s *MemoryStore) SetResolved(_ context.Context, id uint64, outcome model.Side) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[id]
	if !ok {
		return fmt.Errorf("market %d: %w", id, ErrNotFound)
	}
	m.Resolved = true
	m.Outcome = outcome
	return nil
}

func (s *MemoryStore) RecordClaim(_ context.Context, id uint64, participant string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[id]
	if !ok {
		return fmt.Errorf("market %d: %w", id, ErrNotFound)
	}
	pos, ok := s.positions[posKey{id, participant}]
	if !ok || pos.Claimed {
		return fmt.Errorf("claim for %s on market %d: %w", participant, id, ErrConflict)
	}
	pos.Claimed = true
	m.ClaimedTotal += amount
	return nil
}

func (s *MemoryStore) RevertClaim(_ context.Context, id uint64, participant string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[id]
	if !ok {
		return fmt.Errorf("market %d: %w", id, ErrNotFound)
	}
	pos, ok := s.positions[posKey{id, participant}]
	if !ok || !pos.Claimed {
		return fmt.Errorf("revert claim for %s on market %d: %w", participant, id, ErrConflict)
	}
	pos.Claimed = false
	m.ClaimedTotal -= amount
	return nil
}

func (s *MemoryStore) GetPosition(_ context.Context, id uint64, participant string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pos, ok := s.positions[posKey{id, participant}]; ok {
		cp := *pos
		return &cp, nil
	}
	return &model.Position{MarketID: id, Participant: participant}, nil
}

func (s *MemoryStore) AppendLedger(_ context.Context, e *model.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger = append(s.ledger, *e)
	return nil
}

func (s *MemoryStore) LedgerByMarket(_ context.Context, id uint64) ([]model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.LedgerEntry
	for _, e := range s.ledger {
		if e.MarketID == id {
			result = append(result, e)
		}
	}
	return result, nil
}
