package seeder

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// Fixed UUIDs for the default listings, stable across fresh installs
var (
	STOCK_RELIANCE   = uuid.MustParse("00000000-0000-0000-0001-000000000001")
	STOCK_TCS        = uuid.MustParse("00000000-0000-0000-0001-000000000002")
	STOCK_HDFCBANK   = uuid.MustParse("00000000-0000-0000-0001-000000000003")
	STOCK_INFY       = uuid.MustParse("00000000-0000-0000-0001-000000000004")
	STOCK_BHARTIARTL = uuid.MustParse("00000000-0000-0000-0001-000000000005")
)

// Catalog is the part of the catalog service the seeder needs
type Catalog interface {
	// Load reports whether a persisted catalog was found
	Load(ctx context.Context) (bool, error)

	// Import appends stocks keeping their ids
	Import(ctx context.Context, stocks []domain.Stock) error
}

// MarketSeeder fills an empty catalog with the default listings
type MarketSeeder struct {
	catalog Catalog
}

// NewMarketSeeder creates a new MarketSeeder instance
func NewMarketSeeder(catalog Catalog) *MarketSeeder {
	return &MarketSeeder{
		catalog: catalog,
	}
}

// Seed loads the persisted catalog. If none exists, it imports the defaults.
// An existing catalog is never touched, even if an admin delisted a default stock.
func (s *MarketSeeder) Seed(ctx context.Context) (bool, error) {
	found, err := s.catalog.Load(ctx)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}

	if err := s.catalog.Import(ctx, DefaultStocks()); err != nil {
		return false, err
	}
	return true, nil
}

// DefaultStocks returns the listings of a fresh market, without price history
func DefaultStocks() []domain.Stock {
	stocks := []domain.Stock{
		{
			ID:            STOCK_RELIANCE,
			Symbol:        "RELIANCE",
			Name:          "Reliance Industries",
			CurrentPrice:  decimal.RequireFromString("2540.75"),
			PreviousClose: decimal.RequireFromString("2525.30"),
			DayHigh:       decimal.RequireFromString("2550.20"),
			DayLow:        decimal.RequireFromString("2520.10"),
			Volume:        5420000,
			MarketCap:     decimal.NewFromInt(17150000000000),
			Sector:        "Energy",
		},
		{
			ID:            STOCK_TCS,
			Symbol:        "TCS",
			Name:          "Tata Consultancy Services",
			CurrentPrice:  decimal.RequireFromString("3450.25"),
			PreviousClose: decimal.RequireFromString("3470.80"),
			DayHigh:       decimal.RequireFromString("3475.50"),
			DayLow:        decimal.RequireFromString("3440.75"),
			Volume:        1250000,
			MarketCap:     decimal.NewFromInt(12650000000000),
			Sector:        "IT",
		},
		{
			ID:            STOCK_HDFCBANK,
			Symbol:        "HDFCBANK",
			Name:          "HDFC Bank",
			CurrentPrice:  decimal.RequireFromString("1680.50"),
			PreviousClose: decimal.RequireFromString("1665.20"),
			DayHigh:       decimal.RequireFromString("1695.00"),
			DayLow:        decimal.RequireFromString("1670.25"),
			Volume:        3560000,
			MarketCap:     decimal.NewFromInt(9320000000000),
			Sector:        "Financial Services",
		},
		{
			ID:            STOCK_INFY,
			Symbol:        "INFY",
			Name:          "Infosys",
			CurrentPrice:  decimal.RequireFromString("1420.75"),
			PreviousClose: decimal.RequireFromString("1435.60"),
			DayHigh:       decimal.RequireFromString("1438.50"),
			DayLow:        decimal.RequireFromString("1415.30"),
			Volume:        2890000,
			MarketCap:     decimal.NewFromInt(5980000000000),
			Sector:        "IT",
		},
		{
			ID:            STOCK_BHARTIARTL,
			Symbol:        "BHARTIARTL",
			Name:          "Bharti Airtel",
			CurrentPrice:  decimal.RequireFromString("875.20"),
			PreviousClose: decimal.RequireFromString("860.40"),
			DayHigh:       decimal.RequireFromString("880.75"),
			DayLow:        decimal.RequireFromString("865.90"),
			Volume:        1850000,
			MarketCap:     decimal.NewFromInt(4850000000000),
			Sector:        "Telecommunication",
		},
	}

	for i := range stocks {
		stocks[i].Recompute()
	}
	return stocks
}
