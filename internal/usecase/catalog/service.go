package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/logger"
)

// StockSpec is the input for creating a stock
type StockSpec struct {
	Symbol        string
	Name          string
	CurrentPrice  decimal.Decimal
	PreviousClose decimal.Decimal
	DayHigh       decimal.Decimal
	DayLow        decimal.Decimal
	Volume        int64
	MarketCap     decimal.Decimal
	Sector        string
}

// StockPatch holds the fields to merge into an existing stock; nil fields are left alone.
// Change and ChangePercent are only re-derived when Recompute is set.
type StockPatch struct {
	Symbol        *string
	Name          *string
	CurrentPrice  *decimal.Decimal
	PreviousClose *decimal.Decimal
	DayHigh       *decimal.Decimal
	DayLow        *decimal.Decimal
	Volume        *int64
	MarketCap     *decimal.Decimal
	Sector        *string
	Recompute     bool
}

// Listener receives the full catalog snapshot after every committed change
type Listener func(stocks []domain.Stock)

// CatalogService owns the set of tradable stocks and their quotes
type CatalogService struct {
	Store       domain.RecordStore
	Logger      logger.Logger
	HistoryDays int
	Now         func() time.Time

	mu     sync.RWMutex
	stocks []*domain.Stock
	rng    *rand.Rand

	listenersMu sync.Mutex
	listeners   []Listener
}

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(store domain.RecordStore, log logger.Logger, historyDays int) *CatalogService {
	return &CatalogService{
		Store:       store,
		Logger:      log,
		HistoryDays: historyDays,
		Now:         time.Now,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Load replaces the in-memory catalog with the persisted record.
// It reports false, leaving the catalog empty, when nothing was persisted yet.
func (s *CatalogService) Load(ctx context.Context) (bool, error) {
	data, err := s.Store.Load(ctx, domain.CatalogKey)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load catalog: %w", err)
	}

	var stocks []domain.Stock
	if err := json.Unmarshal(data, &stocks); err != nil {
		return false, fmt.Errorf("failed to decode catalog: %w", err)
	}

	s.mu.Lock()
	s.stocks = make([]*domain.Stock, 0, len(stocks))
	for i := range stocks {
		s.stocks = append(s.stocks, &stocks[i])
	}
	s.mu.Unlock()

	s.Logger.Infof("catalog loaded with %d stocks", len(stocks))
	return true, nil
}

// Import appends fully formed stocks, keeping their ids. Stocks without a
// history get a generated window. Used for seeding; no admin check.
func (s *CatalogService) Import(ctx context.Context, stocks []domain.Stock) error {
	s.mu.Lock()
	now := s.Now()
	batch := make([]*domain.Stock, 0, len(stocks))
	for _, in := range stocks {
		st := in.Clone()
		if err := st.Validate(); err != nil {
			s.mu.Unlock()
			return err
		}
		if s.indexOf(st.ID) >= 0 || s.symbolTaken(st.Symbol, uuid.Nil) || containsSymbol(batch, st.Symbol) {
			s.mu.Unlock()
			return &domain.ValidationError{Field: "symbol", Message: fmt.Sprintf("%s already listed", st.Symbol)}
		}
		if len(st.PriceHistory) == 0 {
			st.PriceHistory = GeneratePriceHistory(st.CurrentPrice, s.HistoryDays, now, s.rng)
		}
		batch = append(batch, &st)
	}
	s.stocks = append(s.stocks, batch...)
	err := s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.Logger.Infof("imported %d stocks", len(batch))
	s.notify(snapshot)
	return err
}

// Create validates spec and lists a new stock with a generated price history
func (s *CatalogService) Create(ctx context.Context, actor domain.Identity, spec StockSpec) (*domain.Stock, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}

	stock := domain.Stock{
		ID:            uuid.New(),
		Symbol:        strings.TrimSpace(spec.Symbol),
		Name:          strings.TrimSpace(spec.Name),
		CurrentPrice:  spec.CurrentPrice,
		PreviousClose: spec.PreviousClose,
		Change:        decimal.Zero,
		ChangePercent: decimal.Zero,
		DayHigh:       spec.DayHigh,
		DayLow:        spec.DayLow,
		Volume:        spec.Volume,
		MarketCap:     spec.MarketCap,
		Sector:        strings.TrimSpace(spec.Sector),
	}

	if err := stock.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.symbolTaken(stock.Symbol, uuid.Nil) {
		s.mu.Unlock()
		return nil, &domain.ValidationError{Field: "symbol", Message: fmt.Sprintf("%s already listed", stock.Symbol)}
	}
	stock.PriceHistory = GeneratePriceHistory(stock.CurrentPrice, s.HistoryDays, s.Now(), s.rng)
	s.stocks = append(s.stocks, &stock)
	created := stock.Clone()
	err := s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.Logger.Infof("stock %s listed by %s", created.Symbol, actor.ID)
	s.notify(snapshot)

	return &created, err
}

// Update merges patch into the stock with the given id
func (s *CatalogService) Update(ctx context.Context, actor domain.Identity, id uuid.UUID, patch StockPatch) (*domain.Stock, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("stock %s: %w", id, domain.ErrNotFound)
	}

	merged := s.stocks[i].Clone()
	patch.apply(&merged)

	if err := merged.Validate(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.symbolTaken(merged.Symbol, id) {
		s.mu.Unlock()
		return nil, &domain.ValidationError{Field: "symbol", Message: fmt.Sprintf("%s already listed", merged.Symbol)}
	}

	s.stocks[i] = &merged
	updated := merged.Clone()
	err := s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.Logger.Infof("stock %s updated by %s", updated.Symbol, actor.ID)
	s.notify(snapshot)

	return &updated, err
}

// Delete removes the stock. Holdings that reference it become stale; nothing cascades.
func (s *CatalogService) Delete(ctx context.Context, actor domain.Identity, id uuid.UUID) error {
	if !actor.IsAdmin {
		return domain.ErrForbidden
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("stock %s: %w", id, domain.ErrNotFound)
	}
	symbol := s.stocks[i].Symbol
	s.stocks = append(s.stocks[:i], s.stocks[i+1:]...)
	err := s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.Logger.Infof("stock %s delisted by %s", symbol, actor.ID)
	s.notify(snapshot)

	return err
}

// List returns every stock in catalog order
func (s *CatalogService) List() []domain.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get returns a consistent snapshot of one stock
func (s *CatalogService) Get(id uuid.UUID) (domain.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Stock{}, fmt.Errorf("stock %s: %w", id, domain.ErrNotFound)
	}
	return s.stocks[i].Clone(), nil
}

// GetBySymbol looks a stock up by symbol, ignoring case
func (s *CatalogService) GetBySymbol(symbol string) (domain.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.stocks {
		if strings.EqualFold(st.Symbol, symbol) {
			return st.Clone(), nil
		}
	}
	return domain.Stock{}, fmt.Errorf("stock %s: %w", symbol, domain.ErrNotFound)
}

// Lookup adapts Get to the shape used by account revaluation
func (s *CatalogService) Lookup(id uuid.UUID) (domain.Stock, bool) {
	st, err := s.Get(id)
	return st, err == nil
}

// Apply runs fn over every stock as one batch: no reader observes a partially
// applied batch. The catalog is persisted and listeners notified afterwards.
func (s *CatalogService) Apply(ctx context.Context, fn func(stock *domain.Stock)) error {
	s.mu.Lock()
	for _, st := range s.stocks {
		fn(st)
	}
	err := s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return err
}

// Subscribe registers fn to be called after every committed change
func (s *CatalogService) Subscribe(fn Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *CatalogService) notify(snapshot []domain.Stock) {
	s.listenersMu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (s *CatalogService) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := s.Store.Save(ctx, domain.CatalogKey, data); err != nil {
		s.Logger.Errorf("failed to persist catalog: %v", err)
		return fmt.Errorf("failed to persist catalog: %w", err)
	}
	return nil
}

func (s *CatalogService) snapshotLocked() []domain.Stock {
	out := make([]domain.Stock, 0, len(s.stocks))
	for _, st := range s.stocks {
		out = append(out, st.Clone())
	}
	return out
}

func (s *CatalogService) indexOf(id uuid.UUID) int {
	for i, st := range s.stocks {
		if st.ID == id {
			return i
		}
	}
	return -1
}

// symbolTaken reports whether another stock than except already uses symbol
func (s *CatalogService) symbolTaken(symbol string, except uuid.UUID) bool {
	for _, st := range s.stocks {
		if st.ID != except && strings.EqualFold(st.Symbol, symbol) {
			return true
		}
	}
	return false
}

func containsSymbol(stocks []*domain.Stock, symbol string) bool {
	for _, st := range stocks {
		if strings.EqualFold(st.Symbol, symbol) {
			return true
		}
	}
	return false
}

func (p StockPatch) apply(s *domain.Stock) {
	if p.Symbol != nil {
		s.Symbol = strings.TrimSpace(*p.Symbol)
	}
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.CurrentPrice != nil {
		s.CurrentPrice = *p.CurrentPrice
	}
	if p.PreviousClose != nil {
		s.PreviousClose = *p.PreviousClose
	}
	if p.DayHigh != nil {
		s.DayHigh = *p.DayHigh
	}
	if p.DayLow != nil {
		s.DayLow = *p.DayLow
	}
	if p.Volume != nil {
		s.Volume = *p.Volume
	}
	if p.MarketCap != nil {
		s.MarketCap = *p.MarketCap
	}
	if p.Sector != nil {
		s.Sector = strings.TrimSpace(*p.Sector)
	}
	if p.Recompute {
		s.Recompute()
	}
}
