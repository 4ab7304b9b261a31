package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/memory"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"pgregory.net/rapid"
)

// Property: across any sequence of buys and sells at moving prices, cash equals
// the starting balance minus every executed buy cost plus every executed sale,
// cash never goes negative, and a sell never moves the average buy price.

func TestProperty_CashMatchesExecutedTrades(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		stock := testStock("TEST", "100")
		catalog := newFakeCatalog(stock)
		initial := rapid.Int64Range(1000, 1000000).Draw(t, "initial")
		svc := newTestLedger(memory.NewRecordRepository(), catalog, initial)

		expected := decimal.NewFromInt(initial)
		var held int64

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			cents := rapid.Int64Range(1, 500000).Draw(t, "priceCents")
			price := decimal.New(cents, -2)
			catalog.setPrice(stock.ID, price.String())
			qty := rapid.Int64Range(1, 50).Draw(t, "qty")
			amount := price.Mul(decimal.NewFromInt(qty))

			if rapid.Bool().Draw(t, "buy") {
				_, err := svc.Buy(ctx, "user-1", stock.ID, qty)
				if err == nil {
					expected = expected.Sub(amount)
					held += qty
				}
				continue
			}

			before, _ := svc.Get(ctx, "user-1")
			avgBefore := decimal.Zero
			if h, ok := before.Holding(stock.ID); ok {
				avgBefore = h.AverageBuyPrice
			}

			_, err := svc.Sell(ctx, "user-1", stock.ID, qty)
			if err != nil {
				continue
			}
			expected = expected.Add(amount)
			held -= qty

			after, _ := svc.Get(ctx, "user-1")
			if h, ok := after.Holding(stock.ID); ok && !h.AverageBuyPrice.Equal(avgBefore) {
				t.Fatalf("sell moved average from %s to %s", avgBefore, h.AverageBuyPrice)
			}
		}

		account, err := svc.Get(ctx, "user-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !account.CashBalance.Equal(expected) {
			t.Fatalf("cash %s, expected %s", account.CashBalance, expected)
		}
		if account.CashBalance.IsNegative() {
			t.Fatalf("cash went negative: %s", account.CashBalance)
		}

		h, ok := account.Holding(stock.ID)
		switch {
		case held == 0 && ok:
			t.Fatalf("empty position still listed with quantity %d", h.Quantity)
		case held > 0 && (!ok || h.Quantity != held):
			t.Fatalf("holding quantity %d, expected %d", h.Quantity, held)
		}

		for _, tx := range account.Transactions {
			if err := tx.Validate(); err != nil {
				t.Fatalf("invalid transaction %v: %v", tx, err)
			}
		}
		if account.Transactions[0].Type != domain.TransactionTypeDeposit {
			t.Fatalf("first transaction is %s, expected seed deposit", account.Transactions[0].Type)
		}
	})
}
