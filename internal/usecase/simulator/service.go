package simulator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/logger"
)

// MaxMovePercent bounds the per-tick price movement in either direction
const MaxMovePercent = 1.5

// DefaultInterval is the tick period of the simulated market
const DefaultInterval = 60 * time.Second

// Catalog is the part of the catalog service the simulator writes through
type Catalog interface {
	Apply(ctx context.Context, fn func(stock *domain.Stock)) error
}

// SimulatorService moves every listed stock by a bounded random walk
type SimulatorService struct {
	Catalog      Catalog
	Logger       logger.Logger
	Interval     time.Duration
	HistoryLimit int
	Now          func() time.Time
	Rand         *rand.Rand

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSimulatorService creates a new SimulatorService instance
func NewSimulatorService(catalog Catalog, log logger.Logger, interval time.Duration, historyLimit int) *SimulatorService {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &SimulatorService{
		Catalog:      catalog,
		Logger:       log,
		Interval:     interval,
		HistoryLimit: historyLimit,
		Now:          time.Now,
		Rand:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Tick applies one market movement to every stock as a single batch.
// For each stock the new price is round2(price x (1 + m)) with m uniform in
// [-1.5%, +1.5%]; change fields, day range and today's history entry follow.
func (s *SimulatorService) Tick(ctx context.Context) error {
	today := domain.DateOf(s.Now())
	moved := 0

	err := s.Catalog.Apply(ctx, func(stock *domain.Stock) {
		stock.Reprice(s.nextPrice(stock.CurrentPrice), today)
		stock.TrimHistory(s.HistoryLimit)
		moved++
	})
	if err != nil {
		return fmt.Errorf("market tick: %w", err)
	}

	s.Logger.Debugf("market tick moved %d stocks", moved)
	return nil
}

// nextPrice is only called inside Catalog.Apply, which serializes access to Rand
func (s *SimulatorService) nextPrice(price decimal.Decimal) decimal.Decimal {
	movement := (s.Rand.Float64()*2 - 1) * MaxMovePercent / 100
	next := domain.Round2(price.Mul(decimal.NewFromFloat(1 + movement)))
	if !next.IsPositive() {
		return price
	}
	return next
}

// Run ticks every Interval until ctx is cancelled. A failed tick is logged
// and the loop keeps going.
func (s *SimulatorService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.Logger.Errorf("simulator: %v", err)
			}
		}
	}
}

// Start runs the simulator in the background
func (s *SimulatorService) Start(parent context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("simulator is already running")
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go func(done chan struct{}) {
		defer close(done)
		s.Run(ctx)
	}(s.done)

	s.Logger.Infof("market simulator started, ticking every %s", s.Interval)
	return nil
}

// Stop cancels the background loop and waits for an in-flight tick to finish
func (s *SimulatorService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("simulator is not running")
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()

	<-done
	s.Logger.Infof("market simulator stopped")
	return nil
}
