// Package signature authenticates settlement requests with HMAC-SHA256.
//
// The signed message is the canonical string
//
//	wallet_id:amount:round_id:timestamp
//
// where every field is taken exactly as the client sent it. The signature is
// the lowercase hex encoding of the HMAC digest keyed by the shared secret.
package signature

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Payload holds the signed fields of a settlement request in their received
// textual form. Numbers are not reformatted.
type Payload struct {
	WalletID  string
	Amount    string
	RoundID   string
	Timestamp string
}

// Canonical returns the string the HMAC is computed over.
func (p Payload) Canonical() string {
	return strings.Join([]string{p.WalletID, p.Amount, p.RoundID, p.Timestamp}, ":")
}

// Sign returns the lowercase hex HMAC-SHA256 of the canonical payload.
func Sign(p Payload, secret string) (string, error) {
	sig, err := jwt.SigningMethodHS256.Sign(p.Canonical(), []byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// Verify reports whether signature is the HMAC of p under secret.
// The digest comparison is constant-time.
func Verify(p Payload, signature, secret string) bool {
	if !isLowerHex(signature) {
		return false
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return jwt.SigningMethodHS256.Verify(p.Canonical(), sig, []byte(secret)) == nil
}

// isLowerHex rejects uppercase digits so that only the exact encoding
// produced by Sign is accepted.
func isLowerHex(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
