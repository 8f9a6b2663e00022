// Package server exposes the wagering engine over HTTP and streams ledger
// events over WebSocket. Participant identity arrives in the X-Participant
// header; the signature flow that authenticates it lives upstream.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parimut/pool-engine/internal/escrow"
	"github.com/parimut/pool-engine/internal/ledger"
	"github.com/parimut/pool-engine/internal/limit"
	"github.com/parimut/pool-engine/internal/model"
	"github.com/parimut/pool-engine/internal/payout"
)

const identityHeader = "X-Participant"

// defaultPageSize caps market listing pages when count is not given.
const defaultPageSize = 50

// Service handles the HTTP surface of the pool engine.
type Service struct {
	ledger *ledger.Ledger
	book   *escrow.AccountBook
}

// NewService creates the HTTP service over an engine and its escrow book.
func NewService(l *ledger.Ledger, book *escrow.AccountBook) *Service {
	return &Service{ledger: l, book: book}
}

// Mount registers all API routes on the given router.
func (s *Service) Mount(r chi.Router) {
	r.Get("/markets", s.ListMarkets)
	r.Post("/markets", s.CreateMarket)
	r.Get("/markets/count", s.MarketCount)
	r.Get("/markets/{marketID}", s.GetMarket)
	r.Get("/markets/{marketID}/history", s.GetHistory)
	r.Post("/markets/{marketID}/bets", s.PlaceBet)
	r.Post("/markets/{marketID}/resolve", s.ResolveMarket)
	r.Post("/markets/{marketID}/claim", s.ClaimPayout)
	r.Get("/markets/{marketID}/positions/{participant}", s.GetPosition)
	r.Get("/markets/{marketID}/claimable/{participant}", s.GetClaimable)

	r.Get("/accounts/{participant}", s.GetAccount)
	r.Post("/accounts/{participant}/deposit", s.Deposit)
	r.Post("/accounts/{participant}/approve", s.Approve)
}

// --- Request/Response types ---

// CreateMarketRequest is the JSON body for market creation.
type CreateMarketRequest struct {
	Question  string `json:"question"`
	CloseTime int64  `json:"close_time"` // unix seconds
}

// BetRequest is the JSON body for placing a bet.
type BetRequest struct {
	Side   model.Side `json:"side"` // "YES" or "NO"
	Amount uint64     `json:"amount"`
}

// ResolveRequest is the JSON body for resolving a market.
type ResolveRequest struct {
	Outcome model.Side `json:"outcome"`
}

// AmountRequest is the JSON body for deposits and approvals.
type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

// MarketView is the market representation returned by the API: the stored
// record plus the derived state and pool-implied odds.
type MarketView struct {
	ID           uint64      `json:"id"`
	Question     string      `json:"question"`
	CloseTime    int64       `json:"close_time"`
	State        model.State `json:"state"`
	YesPool      uint64      `json:"yes_pool"`
	NoPool       uint64      `json:"no_pool"`
	ClaimedTotal uint64      `json:"claimed_total"`
	Outcome      model.Side  `json:"outcome,omitempty"`
	ImpliedYes   string      `json:"implied_yes"`
	ImpliedNo    string      `json:"implied_no"`
	CreatedAt    time.Time   `json:"created_at"`
}

// BetResponse confirms an accepted bet with the updated position.
type BetResponse struct {
	MarketID    uint64          `json:"market_id"`
	Participant string          `json:"participant"`
	Side        model.Side      `json:"side"`
	Amount      uint64          `json:"amount"`
	Position    *model.Position `json:"position"`
}

// ClaimResponse reports the amount a claim disbursed.
type ClaimResponse struct {
	MarketID    uint64 `json:"market_id"`
	Participant string `json:"participant"`
	Amount      uint64 `json:"amount"`
}

func (s *Service) marketView(m *model.Market) MarketView {
	impliedYes, impliedNo := payout.ImpliedOdds(m.YesPool, m.NoPool)
	v := MarketView{
		ID:           m.ID,
		Question:     m.Question,
		CloseTime:    m.CloseTime.Unix(),
		State:        m.StateAt(s.ledger.Now()),
		YesPool:      m.YesPool,
		NoPool:       m.NoPool,
		ClaimedTotal: m.ClaimedTotal,
		ImpliedYes:   impliedYes.String(),
		ImpliedNo:    impliedNo.String(),
		CreatedAt:    m.CreatedAt,
	}
	if m.Resolved {
		v.Outcome = m.Outcome
	}
	return v
}

// --- Market handlers ---

// CreateMarket handles POST /api/v1/markets
func (s *Service) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	m, err := s.ledger.CreateMarket(r.Context(), identity(r), req.Question, time.Unix(req.CloseTime, 0))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.marketView(m))
}

// ListMarkets handles GET /api/v1/markets?start=&count=
func (s *Service) ListMarkets(w http.ResponseWriter, r *http.Request) {
	start := queryUint(r, "start", 1)
	count := queryUint(r, "count", defaultPageSize)
	ctx := r.Context()

	ids, err := s.ledger.MarketIDs(ctx, start, count)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	views := make([]MarketView, 0, len(ids))
	for _, id := range ids {
		m, err := s.ledger.Market(ctx, id)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		views = append(views, s.marketView(m))
	}
	writeJSON(w, http.StatusOK, views)
}

// MarketCount handles GET /api/v1/markets/count
func (s *Service) MarketCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.ledger.MarketCount(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"count": count})
}

// GetMarket handles GET /api/v1/markets/{marketID}
func (s *Service) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	m, err := s.ledger.Market(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.marketView(m))
}

// GetHistory handles GET /api/v1/markets/{marketID}/history
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	entries, err := s.ledger.History(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// PlaceBet handles POST /api/v1/markets/{marketID}/bets
func (s *Service) PlaceBet(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	var req BetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	caller := identity(r)
	ctx := r.Context()
	if err := s.ledger.PlaceBet(ctx, caller, id, req.Side, req.Amount); err != nil {
		writeLedgerError(w, err)
		return
	}

	pos, err := s.ledger.Position(ctx, id, caller)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BetResponse{
		MarketID:    id,
		Participant: caller,
		Side:        req.Side,
		Amount:      req.Amount,
		Position:    pos,
	})
}

// ResolveMarket handles POST /api/v1/markets/{marketID}/resolve
func (s *Service) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := s.ledger.ResolveMarket(ctx, identity(r), id, req.Outcome); err != nil {
		writeLedgerError(w, err)
		return
	}

	m, err := s.ledger.Market(ctx, id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.marketView(m))
}

// ClaimPayout handles POST /api/v1/markets/{marketID}/claim
func (s *Service) ClaimPayout(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}

	caller := identity(r)
	amount, err := s.ledger.ClaimPayout(r.Context(), caller, id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClaimResponse{MarketID: id, Participant: caller, Amount: amount})
}

// GetPosition handles GET /api/v1/markets/{marketID}/positions/{participant}
func (s *Service) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	pos, err := s.ledger.Position(r.Context(), id, chi.URLParam(r, "participant"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// GetClaimable handles GET /api/v1/markets/{marketID}/claimable/{participant}
func (s *Service) GetClaimable(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	amount, err := s.ledger.ClaimableAmount(r.Context(), id, chi.URLParam(r, "participant"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"amount": amount})
}

// --- Escrow account handlers ---

// GetAccount handles GET /api/v1/accounts/{participant}
func (s *Service) GetAccount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.book.Account(chi.URLParam(r, "participant")))
}

// Deposit handles POST /api/v1/accounts/{participant}/deposit
// Only the resolver may credit balances (operator faucet).
func (s *Service) Deposit(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !s.ledger.IsResolver(identity(r)) {
		writeError(w, "only the resolver may deposit", http.StatusForbidden)
		return
	}

	participant := chi.URLParam(r, "participant")
	if err := s.book.Credit(participant, req.Amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.book.Account(participant))
}

// Approve handles POST /api/v1/accounts/{participant}/approve
// Participants may only authorize spending from their own account.
func (s *Service) Approve(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	participant := chi.URLParam(r, "participant")
	if identity(r) != participant {
		writeError(w, "cannot approve another participant's account", http.StatusForbidden)
		return
	}
	s.book.Approve(participant, req.Amount)
	writeJSON(w, http.StatusOK, s.book.Account(participant))
}

// --- helpers ---

func identity(r *http.Request) string {
	return r.Header.Get(identityHeader)
}

func marketID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "marketID"), 10, 64)
	if err != nil {
		writeError(w, "invalid market id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func queryUint(r *http.Request, key string, fallback uint64) uint64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeLedgerError maps engine and escrow errors onto HTTP status codes.
func writeLedgerError(w http.ResponseWriter, err error) {
	writeError(w, err.Error(), errorStatus(err))
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, ledger.ErrBelowMinimum),
		errors.Is(err, escrow.ErrAmountOverflow):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotResolver):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrMarketNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrMarketNotOpen),
		errors.Is(err, ledger.ErrMarketNotClosed),
		errors.Is(err, ledger.ErrAlreadyResolved),
		errors.Is(err, ledger.ErrMarketNotResolved),
		errors.Is(err, ledger.ErrAlreadyClaimed),
		errors.Is(err, ledger.ErrNoWinningPosition),
		errors.Is(err, ledger.ErrReentrantCall),
		errors.Is(err, limit.ErrStakeLimitExceeded),
		errors.Is(err, limit.ErrPoolLimitExceeded):
		return http.StatusConflict
	case errors.Is(err, escrow.ErrInsufficientAllowance),
		errors.Is(err, escrow.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, escrow.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
