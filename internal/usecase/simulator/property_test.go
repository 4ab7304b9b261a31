package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/simaogato/papertrade-backend/internal/adapter/repository/memory"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/logger"
	"github.com/simaogato/papertrade-backend/internal/usecase/catalog"
	"github.com/simaogato/papertrade-backend/internal/usecase/seeder"
	"pgregory.net/rapid"
)

// Any sequence of ticks keeps every quote inside its day range and the
// history strictly ordered by date without duplicates.

func TestProperty_TicksPreserveQuoteInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		ticks := rapid.IntRange(1, 40).Draw(t, "ticks")
		limit := rapid.IntRange(0, 35).Draw(t, "historyLimit")

		clock := testNow
		now := func() time.Time { return clock }

		cat := catalog.NewCatalogService(memory.NewRecordRepository(), logger.Nop(), catalog.DefaultHistoryDays)
		cat.Now = now
		if err := cat.Import(context.Background(), seeder.DefaultStocks()); err != nil {
			t.Fatalf("import: %v", err)
		}

		sim := newTestSimulator(cat, seed, now)
		sim.HistoryLimit = limit

		for i := 0; i < ticks; i++ {
			hours := rapid.IntRange(0, 30).Draw(t, "advanceHours")
			clock = clock.Add(time.Duration(hours) * time.Hour)
			if err := sim.Tick(context.Background()); err != nil {
				t.Fatalf("tick %d: %v", i, err)
			}
		}

		for _, st := range cat.List() {
			if st.DayHigh.LessThan(st.CurrentPrice) || st.DayLow.GreaterThan(st.CurrentPrice) {
				t.Fatalf("%s out of range: low=%s cur=%s high=%s", st.Symbol, st.DayLow, st.CurrentPrice, st.DayHigh)
			}
			if !st.CurrentPrice.IsPositive() {
				t.Fatalf("%s price not positive: %s", st.Symbol, st.CurrentPrice)
			}
			if !domain.Round2(st.CurrentPrice.Sub(st.PreviousClose)).Equal(st.Change) {
				t.Fatalf("%s change %s does not match quote", st.Symbol, st.Change)
			}
			if limit > 0 && len(st.PriceHistory) > limit {
				t.Fatalf("%s history %d exceeds limit %d", st.Symbol, len(st.PriceHistory), limit)
			}
			for j := 1; j < len(st.PriceHistory); j++ {
				if st.PriceHistory[j-1].Date >= st.PriceHistory[j].Date {
					t.Fatalf("%s history not strictly ordered at %d: %s >= %s",
						st.Symbol, j, st.PriceHistory[j-1].Date, st.PriceHistory[j].Date)
				}
			}
			last := st.PriceHistory[len(st.PriceHistory)-1]
			if last.Date != domain.DateOf(clock) || !last.Price.Equal(st.CurrentPrice) {
				t.Fatalf("%s latest history entry %v does not match quote %s", st.Symbol, last, st.CurrentPrice)
			}
		}
	})
}
