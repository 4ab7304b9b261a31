package simulator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/memory"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/logger"
	"github.com/simaogato/papertrade-backend/internal/usecase/ledger"
	"github.com/simaogato/papertrade-backend/internal/usecase/seeder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkQuote reports whether a snapshot is internally consistent
func checkQuote(t *testing.T, s domain.Stock) {
	t.Helper()
	assert.True(t, s.DayLow.LessThanOrEqual(s.CurrentPrice), "%s: low %s above price %s", s.Symbol, s.DayLow, s.CurrentPrice)
	assert.True(t, s.DayHigh.GreaterThanOrEqual(s.CurrentPrice), "%s: high %s below price %s", s.Symbol, s.DayHigh, s.CurrentPrice)
	assert.True(t, domain.Round2(s.CurrentPrice.Sub(s.PreviousClose)).Equal(s.Change), "%s: change %s does not match price %s", s.Symbol, s.Change, s.CurrentPrice)
}

// Run with -race: ticks, catalog readers and trades share the catalog
func TestSimulatorService_TickIsAtomicForReadersAndTrades(t *testing.T) {
	ctx := context.Background()
	now := func() time.Time { return testNow }
	cat := newSeededCatalog(t, now)
	sim := newTestSimulator(cat, 7, now)
	led := ledger.NewLedgerService(memory.NewRecordRepository(), cat, logger.Nop(), decimal.NewFromInt(100000000))
	led.Now = now

	const (
		ticks   = 200
		maxBuys = 500
	)
	var done atomic.Bool
	var wg sync.WaitGroup

	// Every batch stamps one volume on all stocks; a reader seeing two
	// different volumes saw a batch half applied
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer done.Store(true)
		for i := 0; i < ticks; i++ {
			assert.NoError(t, sim.Tick(ctx))
			stamp := int64(i)
			assert.NoError(t, cat.Apply(ctx, func(s *domain.Stock) { s.Volume = stamp }))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !done.Load() {
				stocks := cat.List()
				if !assert.NotEmpty(t, stocks) {
					return
				}
				for _, s := range stocks {
					checkQuote(t, s)
					assert.Equal(t, stocks[0].Volume, s.Volume, "reader saw a partially applied batch")
				}

				s, err := cat.Get(seeder.STOCK_TCS)
				assert.NoError(t, err)
				checkQuote(t, s)
			}
		}()
	}

	owners := []string{"alice", "bob", "carol"}
	for _, owner := range owners {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			for i := 0; i < maxBuys && !done.Load(); i++ {
				tx, err := led.Buy(ctx, owner, seeder.STOCK_INFY, 3)
				if !assert.NoError(t, err) {
					return
				}
				assert.True(t, tx.Price.Mul(decimal.NewFromInt(tx.Quantity)).Equal(tx.Amount),
					"buy of %d @ %s recorded %s", tx.Quantity, tx.Price, tx.Amount)
			}
		}(owner)
	}

	wg.Wait()

	for _, owner := range owners {
		account, err := led.Get(ctx, owner)
		require.NoError(t, err)
		spent := decimal.Zero
		for _, tx := range account.Transactions[1:] {
			assert.Equal(t, domain.TransactionTypeBuy, tx.Type)
			spent = spent.Add(tx.Amount)
		}
		assert.True(t, decimal.NewFromInt(100000000).Sub(spent).Equal(account.CashBalance), "%s cash %s", owner, account.CashBalance)
	}
}
