package ledger

import "github.com/parimut/pool-engine/internal/model"

// Event types published to the notifier after each committed operation.
const (
	EventMarketCreated  = "market_created"
	EventBetPlaced      = "bet_placed"
	EventMarketResolved = "market_resolved"
	EventPayoutClaimed  = "payout_claimed"
)

// Event describes one committed ledger operation for off-engine consumers
// (WebSocket stream, indexers).
type Event struct {
	Type        string
	MarketID    uint64
	Participant string
	Side        model.Side
	Amount      uint64
	YesPool     uint64
	NoPool      uint64
	Outcome     model.Side
}

// Notifier receives events after operations commit. Implementations must
// not block; the engine publishes while holding its operation lock.
type Notifier interface {
	Publish(Event)
}
