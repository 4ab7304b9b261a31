package catalog

import (
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// DefaultHistoryDays is the seeded history window: today plus 30 days back
const DefaultHistoryDays = 30

var (
	historyLowFactor = 0.9
	historySpread    = 0.2
)

// GeneratePriceHistory returns days+1 daily points ending on now's UTC date, oldest first.
// Each price is basePrice scaled by a uniform factor in [0.9, 1.1), rounded to cents.
func GeneratePriceHistory(basePrice decimal.Decimal, days int, now time.Time, rng *rand.Rand) []domain.PricePoint {
	if days < 0 {
		days = 0
	}
	// Step back in UTC; a local day across a DST change is not 24h long
	now = now.UTC()

	history := make([]domain.PricePoint, 0, days+1)
	for i := days; i >= 0; i-- {
		factor := decimal.NewFromFloat(historyLowFactor + rng.Float64()*historySpread)
		history = append(history, domain.PricePoint{
			Date:  domain.DateOf(now.AddDate(0, 0, -i)),
			Price: domain.Round2(basePrice.Mul(factor)),
		})
	}
	return history
}
