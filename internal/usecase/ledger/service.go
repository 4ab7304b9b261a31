package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/logger"
)

// DefaultStartingBalance funds every new account
var DefaultStartingBalance = decimal.NewFromInt(1000000)

// Catalog is the read side of the stock catalog the ledger prices trades with
type Catalog interface {
	// Get returns a consistent snapshot of one stock or a wrapped domain.ErrNotFound
	Get(id uuid.UUID) (domain.Stock, error)

	// Lookup reports whether the stock is still listed
	Lookup(id uuid.UUID) (domain.Stock, bool)
}

// PortfolioSummary is the valuation of an account at current prices
type PortfolioSummary struct {
	CashBalance       decimal.Decimal  `json:"cashBalance"`
	TotalValue        decimal.Decimal  `json:"totalValue"`
	Invested          decimal.Decimal  `json:"invested"`
	ProfitLoss        decimal.Decimal  `json:"profitLoss"`
	ProfitLossPercent decimal.Decimal  `json:"profitLossPercent"`
	NetWorth          decimal.Decimal  `json:"netWorth"`
	Holdings          []domain.Holding `json:"holdings"`
	StaleHoldings     int              `json:"staleHoldings"`
}

type accountEntry struct {
	mu      sync.Mutex
	account *domain.Account
}

// LedgerService applies deposits and trades to per-owner accounts
type LedgerService struct {
	Store           domain.RecordStore
	Catalog         Catalog
	Logger          logger.Logger
	StartingBalance decimal.Decimal
	Now             func() time.Time

	mu       sync.Mutex
	accounts map[string]*accountEntry
}

// NewLedgerService creates a new LedgerService instance
func NewLedgerService(store domain.RecordStore, catalog Catalog, log logger.Logger, startingBalance decimal.Decimal) *LedgerService {
	if !startingBalance.IsPositive() {
		startingBalance = DefaultStartingBalance
	}
	return &LedgerService{
		Store:           store,
		Catalog:         catalog,
		Logger:          log,
		StartingBalance: startingBalance,
		Now:             time.Now,
		accounts:        make(map[string]*accountEntry),
	}
}

// Open loads the owner's account, creating and persisting a funded one on first access
func (s *LedgerService) Open(ctx context.Context, ownerID string) (domain.Account, error) {
	var snapshot domain.Account
	err := s.withAccount(ctx, ownerID, func(a *domain.Account) error {
		snapshot = a.Clone()
		return nil
	})
	return snapshot, err
}

// Get returns a snapshot of the owner's account
func (s *LedgerService) Get(ctx context.Context, ownerID string) (domain.Account, error) {
	return s.Open(ctx, ownerID)
}

// Deposit credits amount to the owner's cash balance.
// A non-positive amount is a no-op returning (nil, nil).
func (s *LedgerService) Deposit(ctx context.Context, ownerID string, amount decimal.Decimal) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, nil
	}

	var tx *domain.Transaction
	err := s.withAccount(ctx, ownerID, func(a *domain.Account) error {
		tx = a.Deposit(amount, s.Now())
		s.Logger.Infof("account %s deposited %s", ownerID, amount)
		return s.persist(ctx, a)
	})
	return tx, err
}

// Buy purchases quantity shares of stockID at the catalog's current price.
// A non-positive quantity is a no-op returning (nil, nil).
func (s *LedgerService) Buy(ctx context.Context, ownerID string, stockID uuid.UUID, quantity int64) (*domain.Transaction, error) {
	if quantity <= 0 {
		return nil, nil
	}

	var tx *domain.Transaction
	err := s.withAccount(ctx, ownerID, func(a *domain.Account) error {
		stock, err := s.Catalog.Get(stockID)
		if err != nil {
			return err
		}

		t, err := a.Buy(stock, quantity, s.Now())
		if err != nil {
			return fmt.Errorf("buy %d %s: %w", quantity, stock.Symbol, err)
		}
		tx = t

		s.Logger.Infof("account %s bought %d %s @ %s", ownerID, quantity, stock.Symbol, stock.CurrentPrice)
		return s.persist(ctx, a)
	})
	return tx, err
}

// Sell sells quantity shares of stockID at the catalog's current price.
// A non-positive quantity is a no-op returning (nil, nil).
func (s *LedgerService) Sell(ctx context.Context, ownerID string, stockID uuid.UUID, quantity int64) (*domain.Transaction, error) {
	if quantity <= 0 {
		return nil, nil
	}

	var tx *domain.Transaction
	err := s.withAccount(ctx, ownerID, func(a *domain.Account) error {
		stock, err := s.Catalog.Get(stockID)
		if err != nil {
			return err
		}

		t, err := a.Sell(stock, quantity, s.Now())
		if err != nil {
			return fmt.Errorf("sell %d %s: %w", quantity, stock.Symbol, err)
		}
		tx = t

		s.Logger.Infof("account %s sold %d %s @ %s", ownerID, quantity, stock.Symbol, stock.CurrentPrice)
		return s.persist(ctx, a)
	})
	return tx, err
}

// Revalue refreshes the current value of every holding from catalog prices.
// Holdings of delisted stocks keep their last value. No transaction is recorded.
func (s *LedgerService) Revalue(ctx context.Context, ownerID string) (domain.Account, error) {
	var snapshot domain.Account
	err := s.withAccount(ctx, ownerID, func(a *domain.Account) error {
		s.revalueLocked(ownerID, a)
		snapshot = a.Clone()
		return s.persist(ctx, a)
	})
	return snapshot, err
}

// Summary revalues the account and returns its valuation
func (s *LedgerService) Summary(ctx context.Context, ownerID string) (*PortfolioSummary, error) {
	var summary *PortfolioSummary
	err := s.withAccount(ctx, ownerID, func(a *domain.Account) error {
		stale := s.revalueLocked(ownerID, a)
		summary = summarize(a)
		summary.StaleHoldings = stale
		return s.persist(ctx, a)
	})
	return summary, err
}

// Release drops the cached account on logout. The persisted record is kept.
// An in-flight operation finishes, and its save lands, before the entry is dropped.
func (s *LedgerService) Release(ownerID string) {
	s.mu.Lock()
	e, ok := s.accounts[ownerID]
	s.mu.Unlock()

	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.mu.Lock()
	if s.accounts[ownerID] == e {
		delete(s.accounts, ownerID)
	}
	s.mu.Unlock()
	e.account = nil

	s.Logger.Debugf("account %s released", ownerID)
}

func (s *LedgerService) withAccount(ctx context.Context, ownerID string, fn func(a *domain.Account) error) error {
	if strings.TrimSpace(ownerID) == "" {
		return &domain.ValidationError{Field: "ownerId", Message: "cannot be empty"}
	}

	e := s.lock(ownerID)
	defer e.mu.Unlock()

	if e.account == nil {
		a, err := s.load(ctx, ownerID)
		if err != nil {
			return err
		}
		e.account = a
	}

	return fn(e.account)
}

// lock returns the owner's entry with its mutex held. An entry released while
// the caller waited is no longer in the map, so the lookup starts over.
func (s *LedgerService) lock(ownerID string) *accountEntry {
	for {
		e := s.entry(ownerID)
		e.mu.Lock()

		s.mu.Lock()
		current := s.accounts[ownerID] == e
		s.mu.Unlock()

		if current {
			return e
		}
		e.mu.Unlock()
	}
}

func (s *LedgerService) entry(ownerID string) *accountEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.accounts[ownerID]
	if !ok {
		e = &accountEntry{}
		s.accounts[ownerID] = e
	}
	return e
}

func (s *LedgerService) load(ctx context.Context, ownerID string) (*domain.Account, error) {
	data, err := s.Store.Load(ctx, domain.AccountKey(ownerID))
	if errors.Is(err, domain.ErrRecordNotFound) {
		a := domain.NewAccount(ownerID, s.StartingBalance, s.Now())
		s.Logger.Infof("account %s opened with %s", ownerID, s.StartingBalance)
		if err := s.persist(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", ownerID, err)
	}

	var a domain.Account
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode account %s: %w", ownerID, err)
	}
	a.OwnerID = ownerID
	if a.Holdings == nil {
		a.Holdings = []domain.Holding{}
	}
	if a.Transactions == nil {
		a.Transactions = []domain.Transaction{}
	}
	return &a, nil
}

func (s *LedgerService) persist(ctx context.Context, a *domain.Account) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode account %s: %w", a.OwnerID, err)
	}
	if err := s.Store.Save(ctx, domain.AccountKey(a.OwnerID), data); err != nil {
		s.Logger.Errorf("failed to persist account %s: %v", a.OwnerID, err)
		return fmt.Errorf("failed to persist account %s: %w", a.OwnerID, err)
	}
	return nil
}

func (s *LedgerService) revalueLocked(ownerID string, a *domain.Account) int {
	stale := a.Revalue(s.Catalog.Lookup)
	if stale > 0 {
		s.Logger.Warnf("account %s has %d holdings of delisted stocks", ownerID, stale)
	}
	return stale
}

func summarize(a *domain.Account) *PortfolioSummary {
	totalValue := decimal.Zero
	invested := decimal.Zero
	for _, h := range a.Holdings {
		totalValue = totalValue.Add(h.CurrentValue)
		invested = invested.Add(h.AverageBuyPrice.Mul(decimal.NewFromInt(h.Quantity)))
	}

	profitLoss := totalValue.Sub(invested)
	profitLossPercent := decimal.Zero
	if invested.IsPositive() {
		profitLossPercent = domain.Round2(profitLoss.Div(invested).Mul(decimal.NewFromInt(100)))
	}

	holdings := make([]domain.Holding, len(a.Holdings))
	copy(holdings, a.Holdings)

	return &PortfolioSummary{
		CashBalance:       a.CashBalance,
		TotalValue:        totalValue,
		Invested:          invested,
		ProfitLoss:        profitLoss,
		ProfitLossPercent: profitLossPercent,
		NetWorth:          a.CashBalance.Add(totalValue),
		Holdings:          holdings,
	}
}
