package settlement

import "github.com/shopspring/decimal"

// Direction selects the ledger operation.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Adjustment is an unsigned balance change derived from a signed amount.
type Adjustment struct {
	WalletID   string
	CurrencyID string
	Amount     decimal.Decimal
	Direction  Direction
}

// NewAdjustment maps a signed amount to a direction and magnitude.
// Non-negative amounts, zero included, are credits.
func NewAdjustment(walletID, currencyID string, amount decimal.Decimal) Adjustment {
	dir := Credit
	if amount.IsNegative() {
		dir = Debit
	}
	return Adjustment{
		WalletID:   walletID,
		CurrencyID: currencyID,
		Amount:     amount.Abs(),
		Direction:  dir,
	}
}

// Magnitude is the amount as sent upstream.
func (a Adjustment) Magnitude() string {
	return a.Amount.String()
}
