package simulator

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/memory"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/logger"
	"github.com/simaogato/papertrade-backend/internal/usecase/catalog"
	"github.com/simaogato/papertrade-backend/internal/usecase/seeder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

// MockCatalog is a mock implementation of Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Apply(ctx context.Context, fn func(stock *domain.Stock)) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func newSeededCatalog(t *testing.T, now func() time.Time) *catalog.CatalogService {
	t.Helper()
	svc := catalog.NewCatalogService(memory.NewRecordRepository(), logger.Nop(), catalog.DefaultHistoryDays)
	svc.Now = now
	require.NoError(t, svc.Import(context.Background(), seeder.DefaultStocks()))
	return svc
}

func newTestSimulator(c Catalog, seed uint64, now func() time.Time) *SimulatorService {
	sim := NewSimulatorService(c, logger.Nop(), time.Minute, 0)
	sim.Now = now
	sim.Rand = rand.New(rand.NewPCG(seed, seed))
	return sim
}

func TestSimulatorService_Tick_BoundedMovement(t *testing.T) {
	now := func() time.Time { return testNow }
	cat := newSeededCatalog(t, now)
	before := cat.List()
	sim := newTestSimulator(cat, 42, now)

	require.NoError(t, sim.Tick(context.Background()))

	after := cat.List()
	require.Len(t, after, len(before))
	limit := decimal.NewFromFloat(MaxMovePercent / 100).Add(decimal.RequireFromString("0.0001"))
	for i := range after {
		old, cur := before[i], after[i]
		move := cur.CurrentPrice.Div(old.CurrentPrice).Sub(decimal.NewFromInt(1)).Abs()
		assert.True(t, move.LessThanOrEqual(limit), "%s moved %s", cur.Symbol, move)

		assert.True(t, cur.DayHigh.GreaterThanOrEqual(cur.CurrentPrice))
		assert.True(t, cur.DayLow.LessThanOrEqual(cur.CurrentPrice))
		assert.True(t, domain.Round2(cur.CurrentPrice.Sub(cur.PreviousClose)).Equal(cur.Change))
		assert.True(t, old.PreviousClose.Equal(cur.PreviousClose), "previous close is not touched")

		// Seeded history already ends today, so the tick overwrites that entry
		require.Len(t, cur.PriceHistory, len(old.PriceHistory))
		last := cur.PriceHistory[len(cur.PriceHistory)-1]
		assert.Equal(t, "2026-10-16", last.Date)
		assert.True(t, cur.CurrentPrice.Equal(last.Price))
	}
}

func TestSimulatorService_Tick_NewDayAppendsAndTrims(t *testing.T) {
	clock := testNow
	now := func() time.Time { return clock }
	cat := newSeededCatalog(t, now)
	sim := newTestSimulator(cat, 7, now)

	clock = testNow.AddDate(0, 0, 1)
	require.NoError(t, sim.Tick(context.Background()))

	stock := cat.List()[0]
	require.Len(t, stock.PriceHistory, catalog.DefaultHistoryDays+2)
	assert.Equal(t, "2026-10-17", stock.PriceHistory[len(stock.PriceHistory)-1].Date)

	sim.HistoryLimit = 10
	clock = testNow.AddDate(0, 0, 2)
	require.NoError(t, sim.Tick(context.Background()))

	stock = cat.List()[0]
	require.Len(t, stock.PriceHistory, 10)
	assert.Equal(t, "2026-10-18", stock.PriceHistory[9].Date)
}

func TestSimulatorService_Tick_Deterministic(t *testing.T) {
	now := func() time.Time { return testNow }
	a := newSeededCatalog(t, now)
	b := newSeededCatalog(t, now)

	require.NoError(t, newTestSimulator(a, 99, now).Tick(context.Background()))
	require.NoError(t, newTestSimulator(b, 99, now).Tick(context.Background()))

	for i, st := range a.List() {
		assert.True(t, st.CurrentPrice.Equal(b.List()[i].CurrentPrice), st.Symbol)
	}
}

func TestSimulatorService_Tick_CatalogError(t *testing.T) {
	ctx := context.Background()
	cat := new(MockCatalog)
	cat.On("Apply", ctx, mock.Anything).Return(errors.New("disk full"))
	sim := newTestSimulator(cat, 1, func() time.Time { return testNow })

	err := sim.Tick(ctx)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "market tick")
	cat.AssertExpectations(t)
}

func TestSimulatorService_StartStop(t *testing.T) {
	ticked := make(chan struct{}, 1)
	cat := new(MockCatalog)
	cat.On("Apply", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	})

	sim := newTestSimulator(cat, 1, time.Now)
	sim.Interval = 5 * time.Millisecond

	require.NoError(t, sim.Start(context.Background()))
	assert.Error(t, sim.Start(context.Background()), "second start must fail")

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("simulator never ticked")
	}

	require.NoError(t, sim.Stop())
	assert.Error(t, sim.Stop(), "stop when not running must fail")
}

func TestNewSimulatorService_DefaultInterval(t *testing.T) {
	sim := NewSimulatorService(new(MockCatalog), logger.Nop(), 0, 0)
	assert.Equal(t, DefaultInterval, sim.Interval)
}
