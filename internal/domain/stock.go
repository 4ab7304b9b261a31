package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used by price history entries
const DateLayout = time.DateOnly

var hundred = decimal.NewFromInt(100)

// Round2 rounds a monetary value to 2 decimal places
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DateOf returns the UTC calendar date of t in DateLayout
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// PricePoint is one entry of a stock's daily price history
type PricePoint struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// Stock represents a tradable instrument and its current quote
// Change and ChangePercent are derived and only written by Recompute or Reprice
type Stock struct {
	ID            uuid.UUID       `json:"id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	DayHigh       decimal.Decimal `json:"dayHigh"`
	DayLow        decimal.Decimal `json:"dayLow"`
	Volume        int64           `json:"volume"`
	MarketCap     decimal.Decimal `json:"marketCap"`
	Sector        string          `json:"sector"`
	PriceHistory  []PricePoint    `json:"priceHistory"`
}

// Validate ensures the stock has every required field and a consistent day range
func (s *Stock) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return newValidationError("symbol", "cannot be empty")
	}
	if strings.TrimSpace(s.Name) == "" {
		return newValidationError("name", "cannot be empty")
	}
	if strings.TrimSpace(s.Sector) == "" {
		return newValidationError("sector", "cannot be empty")
	}

	prices := []struct {
		field string
		value decimal.Decimal
	}{
		{"currentPrice", s.CurrentPrice},
		{"previousClose", s.PreviousClose},
		{"dayHigh", s.DayHigh},
		{"dayLow", s.DayLow},
	}
	for _, p := range prices {
		if !p.value.IsPositive() {
			return newValidationError(p.field, "must be positive")
		}
	}

	if s.DayHigh.LessThan(s.CurrentPrice) {
		return newValidationError("dayHigh", "must be greater than or equal to currentPrice")
	}
	if s.DayLow.GreaterThan(s.CurrentPrice) {
		return newValidationError("dayLow", "must be less than or equal to currentPrice")
	}

	if s.Volume < 0 {
		return newValidationError("volume", "cannot be negative")
	}
	if s.MarketCap.IsNegative() {
		return newValidationError("marketCap", "cannot be negative")
	}

	return nil
}

// Recompute derives Change and ChangePercent from CurrentPrice and PreviousClose
func (s *Stock) Recompute() {
	s.Change = Round2(s.CurrentPrice.Sub(s.PreviousClose))
	if s.PreviousClose.IsZero() {
		s.ChangePercent = decimal.Zero
		return
	}
	s.ChangePercent = Round2(s.Change.Div(s.PreviousClose).Mul(hundred))
}

// Reprice moves the quote to newPrice on the given date:
// change fields are recomputed, the day range widened and the history upserted
func (s *Stock) Reprice(newPrice decimal.Decimal, date string) {
	s.CurrentPrice = newPrice
	s.Recompute()
	s.DayHigh = decimal.Max(s.DayHigh, newPrice)
	s.DayLow = decimal.Min(s.DayLow, newPrice)
	s.RecordPrice(date, newPrice)
}

// RecordPrice overwrites the history entry for date, or appends one
func (s *Stock) RecordPrice(date string, price decimal.Decimal) {
	for i := len(s.PriceHistory) - 1; i >= 0; i-- {
		if s.PriceHistory[i].Date == date {
			s.PriceHistory[i].Price = price
			return
		}
	}
	s.PriceHistory = append(s.PriceHistory, PricePoint{Date: date, Price: price})
}

// TrimHistory keeps at most limit of the newest history entries. limit <= 0 keeps everything.
func (s *Stock) TrimHistory(limit int) {
	if limit <= 0 || len(s.PriceHistory) <= limit {
		return
	}
	trimmed := make([]PricePoint, limit)
	copy(trimmed, s.PriceHistory[len(s.PriceHistory)-limit:])
	s.PriceHistory = trimmed
}

// Clone returns a deep copy, safe to hand out while the original keeps changing
func (s Stock) Clone() Stock {
	if s.PriceHistory != nil {
		history := make([]PricePoint, len(s.PriceHistory))
		copy(history, s.PriceHistory)
		s.PriceHistory = history
	}
	return s
}
