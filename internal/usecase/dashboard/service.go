package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// DefaultTopMovers is how many gainers and losers a summary lists
const DefaultTopMovers = 3

// Mover is a condensed quote for the top gainers and losers lists
type Mover struct {
	StockID       string          `json:"stockId"`
	Symbol        string          `json:"symbol"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
}

// MarketSummaryResult represents the market overview
type MarketSummaryResult struct {
	TotalStocks int     `json:"totalStocks"`
	Advancing   int     `json:"advancing"`
	Declining   int     `json:"declining"`
	TopGainers  []Mover `json:"topGainers"`
	TopLosers   []Mover `json:"topLosers"`
}

// StockLister is the catalog read the dashboard needs
type StockLister interface {
	List() []domain.Stock
}

// DashboardService handles dashboard-related operations
type DashboardService struct {
	Catalog   StockLister
	TopMovers int
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(catalog StockLister) *DashboardService {
	return &DashboardService{
		Catalog:   catalog,
		TopMovers: DefaultTopMovers,
	}
}

// MarketSummary counts advancing and declining stocks and ranks the movers
// Logic:
//   - Advancing: change > 0
//   - Declining: everything else, unchanged stocks included
//   - TopGainers: highest changePercent first, only stocks with change > 0
//   - TopLosers: lowest changePercent first, only stocks with change < 0
func (s *DashboardService) MarketSummary() *MarketSummaryResult {
	stocks := s.Catalog.List()

	result := &MarketSummaryResult{
		TotalStocks: len(stocks),
		TopGainers:  []Mover{},
		TopLosers:   []Mover{},
	}

	var gainers, losers []domain.Stock
	for _, st := range stocks {
		switch {
		case st.Change.IsPositive():
			gainers = append(gainers, st)
		case st.Change.IsNegative():
			losers = append(losers, st)
		}
	}
	result.Advancing = len(gainers)
	result.Declining = len(stocks) - len(gainers)

	sort.SliceStable(gainers, func(i, j int) bool {
		return gainers[i].ChangePercent.GreaterThan(gainers[j].ChangePercent)
	})
	sort.SliceStable(losers, func(i, j int) bool {
		return losers[i].ChangePercent.LessThan(losers[j].ChangePercent)
	})

	for i := 0; i < len(gainers) && i < s.TopMovers; i++ {
		result.TopGainers = append(result.TopGainers, toMover(gainers[i]))
	}
	for i := 0; i < len(losers) && i < s.TopMovers; i++ {
		result.TopLosers = append(result.TopLosers, toMover(losers[i]))
	}

	return result
}

func toMover(s domain.Stock) Mover {
	return Mover{
		StockID:       s.ID.String(),
		Symbol:        s.Symbol,
		CurrentPrice:  s.CurrentPrice,
		Change:        s.Change,
		ChangePercent: s.ChangePercent,
	}
}
