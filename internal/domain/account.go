package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of ledger entry
type TransactionType string

const (
	TransactionTypeBuy     TransactionType = "BUY"
	TransactionTypeSell    TransactionType = "SELL"
	TransactionTypeDeposit TransactionType = "DEPOSIT"
)

// Transaction is an immutable ledger entry.
// Amount is always positive; whether it debits or credits cash follows from Type.
// BalanceAfter is the cash balance right after the entry was applied.
type Transaction struct {
	ID           uuid.UUID        `json:"id"`
	Type         TransactionType  `json:"type"`
	StockID      *uuid.UUID       `json:"stockId,omitempty"`
	Symbol       string           `json:"symbol,omitempty"`
	Quantity     int64            `json:"quantity,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Amount       decimal.Decimal  `json:"amount"`
	BalanceAfter decimal.Decimal  `json:"balanceAfter"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Validate ensures the transaction adheres to ledger rules
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return newValidationError("amount", "must be positive")
	}

	switch t.Type {
	case TransactionTypeDeposit:
		if t.StockID != nil || t.Quantity != 0 || t.Price != nil {
			return newValidationError("type", "deposit cannot reference a stock")
		}
	case TransactionTypeBuy, TransactionTypeSell:
		if t.StockID == nil {
			return newValidationError("stockId", "required for trades")
		}
		if t.Quantity <= 0 {
			return newValidationError("quantity", "must be positive")
		}
		if t.Price == nil || !t.Price.IsPositive() {
			return newValidationError("price", "must be positive")
		}
	default:
		return newValidationError("type", "must be BUY, SELL or DEPOSIT")
	}

	return nil
}

// Holding is a position in one stock.
// CurrentValue is a cached projection (Quantity x latest price), not a source of truth.
type Holding struct {
	StockID         uuid.UUID       `json:"stockId"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Quantity        int64           `json:"quantity"`
	AverageBuyPrice decimal.Decimal `json:"averageBuyPrice"`
	CurrentValue    decimal.Decimal `json:"currentValue"`
}

// Account is the cash balance, holdings and ledger of one owner.
// Transactions are kept in creation order, oldest first.
type Account struct {
	OwnerID      string          `json:"-"`
	CashBalance  decimal.Decimal `json:"cashBalance"`
	Holdings     []Holding       `json:"holdings"`
	Transactions []Transaction   `json:"transactions"`
}

// NewAccount creates an account funded with startingBalance through a seed deposit
func NewAccount(ownerID string, startingBalance decimal.Decimal, now time.Time) *Account {
	a := &Account{
		OwnerID:      ownerID,
		CashBalance:  decimal.Zero,
		Holdings:     []Holding{},
		Transactions: []Transaction{},
	}
	a.Deposit(startingBalance, now)
	return a
}

// Deposit credits amount to the cash balance. Non-positive amounts are ignored and return nil.
func (a *Account) Deposit(amount decimal.Decimal, now time.Time) *Transaction {
	if !amount.IsPositive() {
		return nil
	}

	tx := Transaction{
		ID:        uuid.New(),
		Type:      TransactionTypeDeposit,
		Amount:    amount,
		Timestamp: now,
	}

	a.CashBalance = a.CashBalance.Add(amount)
	tx.BalanceAfter = a.CashBalance
	a.Transactions = append(a.Transactions, tx)
	return &tx
}

// Buy debits price x quantity and folds the shares into the holding at weighted-average cost.
// A non-positive quantity is a no-op returning (nil, nil).
func (a *Account) Buy(stock Stock, quantity int64, now time.Time) (*Transaction, error) {
	if quantity <= 0 {
		return nil, nil
	}

	price := stock.CurrentPrice
	qty := decimal.NewFromInt(quantity)
	totalCost := price.Mul(qty)

	tx := newTradeTransaction(TransactionTypeBuy, stock, quantity, totalCost, now)
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	i := a.holdingIndex(stock.ID)
	if i >= 0 && quantity > math.MaxInt64-a.Holdings[i].Quantity {
		return nil, newValidationError("quantity", "holding would exceed the maximum share count")
	}

	if totalCost.GreaterThan(a.CashBalance) {
		return nil, ErrInsufficientFunds
	}

	a.CashBalance = a.CashBalance.Sub(totalCost)
	tx.BalanceAfter = a.CashBalance

	if i >= 0 {
		h := &a.Holdings[i]
		oldQty := decimal.NewFromInt(h.Quantity)
		newQty := h.Quantity + quantity
		cost := h.AverageBuyPrice.Mul(oldQty).Add(totalCost)
		h.AverageBuyPrice = Round2(cost.Div(decimal.NewFromInt(newQty)))
		h.Quantity = newQty
		h.CurrentValue = price.Mul(decimal.NewFromInt(newQty))
	} else {
		a.Holdings = append(a.Holdings, Holding{
			StockID:         stock.ID,
			Symbol:          stock.Symbol,
			Name:            stock.Name,
			Quantity:        quantity,
			AverageBuyPrice: price,
			CurrentValue:    totalCost,
		})
	}

	a.Transactions = append(a.Transactions, tx)
	return &tx, nil
}

// Sell credits price x quantity and reduces the holding, removing it at zero.
// The average buy price is left unchanged. A non-positive quantity is a no-op returning (nil, nil).
func (a *Account) Sell(stock Stock, quantity int64, now time.Time) (*Transaction, error) {
	if quantity <= 0 {
		return nil, nil
	}

	i := a.holdingIndex(stock.ID)
	if i < 0 || a.Holdings[i].Quantity < quantity {
		return nil, ErrInsufficientShares
	}

	price := stock.CurrentPrice
	saleAmount := price.Mul(decimal.NewFromInt(quantity))

	tx := newTradeTransaction(TransactionTypeSell, stock, quantity, saleAmount, now)
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	a.CashBalance = a.CashBalance.Add(saleAmount)
	tx.BalanceAfter = a.CashBalance

	remaining := a.Holdings[i].Quantity - quantity
	if remaining == 0 {
		a.Holdings = append(a.Holdings[:i], a.Holdings[i+1:]...)
	} else {
		a.Holdings[i].Quantity = remaining
		a.Holdings[i].CurrentValue = price.Mul(decimal.NewFromInt(remaining))
	}

	a.Transactions = append(a.Transactions, tx)
	return &tx, nil
}

// Revalue refreshes CurrentValue of every holding whose stock lookup succeeds.
// Holdings of unknown stocks keep their last value. Returns the number of stale holdings.
func (a *Account) Revalue(lookup func(id uuid.UUID) (Stock, bool)) int {
	stale := 0
	for i := range a.Holdings {
		h := &a.Holdings[i]
		stock, ok := lookup(h.StockID)
		if !ok {
			stale++
			continue
		}
		h.CurrentValue = stock.CurrentPrice.Mul(decimal.NewFromInt(h.Quantity))
	}
	return stale
}

// Holding returns the position in stockID, if any
func (a *Account) Holding(stockID uuid.UUID) (Holding, bool) {
	if i := a.holdingIndex(stockID); i >= 0 {
		return a.Holdings[i], true
	}
	return Holding{}, false
}

// History returns the transactions newest first, for display
func (a *Account) History() []Transaction {
	history := make([]Transaction, len(a.Transactions))
	for i, tx := range a.Transactions {
		history[len(a.Transactions)-1-i] = tx
	}
	return history
}

// Clone returns a deep copy of the account
func (a *Account) Clone() Account {
	c := Account{
		OwnerID:      a.OwnerID,
		CashBalance:  a.CashBalance,
		Holdings:     make([]Holding, len(a.Holdings)),
		Transactions: make([]Transaction, len(a.Transactions)),
	}
	copy(c.Holdings, a.Holdings)
	copy(c.Transactions, a.Transactions)
	return c
}

func (a *Account) holdingIndex(stockID uuid.UUID) int {
	for i := range a.Holdings {
		if a.Holdings[i].StockID == stockID {
			return i
		}
	}
	return -1
}

func newTradeTransaction(txType TransactionType, stock Stock, quantity int64, amount decimal.Decimal, now time.Time) Transaction {
	stockID := stock.ID
	price := stock.CurrentPrice
	return Transaction{
		ID:        uuid.New(),
		Type:      txType,
		StockID:   &stockID,
		Symbol:    stock.Symbol,
		Quantity:  quantity,
		Price:     &price,
		Amount:    amount,
		Timestamp: now,
	}
}
