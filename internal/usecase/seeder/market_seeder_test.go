package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockCatalog is a mock implementation of Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Load(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalog) Import(ctx context.Context, stocks []domain.Stock) error {
	args := m.Called(ctx, stocks)
	return args.Error(0)
}

func TestMarketSeeder_Seed_CatalogMissing(t *testing.T) {
	ctx := context.Background()
	mockCatalog := new(MockCatalog)
	seeder := NewMarketSeeder(mockCatalog)

	mockCatalog.On("Load", ctx).Return(false, nil)
	mockCatalog.On("Import", ctx, mock.MatchedBy(func(stocks []domain.Stock) bool {
		return len(stocks) == 5 &&
			stocks[0].ID == STOCK_RELIANCE &&
			stocks[0].Symbol == "RELIANCE" &&
			stocks[4].ID == STOCK_BHARTIARTL
	})).Return(nil)

	// Execute
	seeded, err := seeder.Seed(ctx)

	// Assert
	assert.NoError(t, err)
	assert.True(t, seeded)
	mockCatalog.AssertExpectations(t)
}

func TestMarketSeeder_Seed_CatalogExists(t *testing.T) {
	ctx := context.Background()
	mockCatalog := new(MockCatalog)
	seeder := NewMarketSeeder(mockCatalog)

	mockCatalog.On("Load", ctx).Return(true, nil)

	// Execute
	seeded, err := seeder.Seed(ctx)

	// Assert
	assert.NoError(t, err)
	assert.False(t, seeded)
	// Verify Import was NOT called (catalog already persisted)
	mockCatalog.AssertNotCalled(t, "Import", mock.Anything, mock.Anything)
}

func TestMarketSeeder_Seed_LoadFails(t *testing.T) {
	ctx := context.Background()
	mockCatalog := new(MockCatalog)
	seeder := NewMarketSeeder(mockCatalog)

	mockCatalog.On("Load", ctx).Return(false, errors.New("connection refused"))

	// Execute
	seeded, err := seeder.Seed(ctx)

	// Assert
	assert.Error(t, err)
	assert.False(t, seeded)
	mockCatalog.AssertNotCalled(t, "Import", mock.Anything, mock.Anything)
}

func TestDefaultStocks_AreValid(t *testing.T) {
	stocks := DefaultStocks()

	symbols := make(map[string]bool)
	for _, s := range stocks {
		assert.NoError(t, s.Validate(), s.Symbol)
		assert.False(t, symbols[s.Symbol], "duplicate symbol %s", s.Symbol)
		symbols[s.Symbol] = true
	}

	// Change fields are derived from the quote
	assert.True(t, decimal.RequireFromString("15.45").Equal(stocks[0].Change))
	assert.True(t, decimal.RequireFromString("-20.55").Equal(stocks[1].Change))
	assert.True(t, decimal.RequireFromString("-0.59").Equal(stocks[1].ChangePercent))
}
