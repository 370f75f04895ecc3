package settlement

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/susu3304/settlerelay/internal/signature"
)

// maxExponent bounds the decimal exponent accepted in numeric fields.
// Arithmetic on larger exponents allocates integers of that many digits.
const maxExponent = 32

// Request is one inbound settlement attempt. Amount and Timestamp keep the
// literal JSON text so the signature is checked against what the client signed.
type Request struct {
	WalletID  string      `json:"wallet_id"`
	Amount    json.Number `json:"amount"`
	RoundID   string      `json:"round_id"`
	Timestamp json.Number `json:"timestamp"`
	Signature string      `json:"signature"`
}

// Key identifies the round for deduplication.
func (r *Request) Key() string {
	return RoundKey(r.WalletID, r.RoundID)
}

// RoundKey derives the processed-round key for a wallet and round.
func RoundKey(walletID, roundID string) string {
	return walletID + ":" + roundID
}

// Payload returns the signed fields.
func (r *Request) Payload() signature.Payload {
	return signature.Payload{
		WalletID:  r.WalletID,
		Amount:    r.Amount.String(),
		RoundID:   r.RoundID,
		Timestamp: r.Timestamp.String(),
	}
}

// ParseAmount returns the signed amount.
func (r *Request) ParseAmount() (decimal.Decimal, error) {
	return parseNumber(r.Amount)
}

// Fresh reports whether the request timestamp (unix seconds) lies within
// window of now. A missing or malformed timestamp is never fresh.
func (r *Request) Fresh(now time.Time, window time.Duration) bool {
	ts, err := parseNumber(r.Timestamp)
	if err != nil {
		return false
	}
	drift := decimal.NewFromInt(now.Unix()).Sub(ts).Abs()
	return drift.LessThanOrEqual(decimal.NewFromInt(int64(window / time.Second)))
}

func parseNumber(n json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, err
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Zero, fmt.Errorf("number %q is out of range", n.String())
	}
	return d, nil
}
