package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/susu3304/settlerelay/internal/replay"
	"github.com/susu3304/settlerelay/internal/settlement"
	"github.com/susu3304/settlerelay/internal/signature"
)

// Client-facing error messages.
const (
	msgInvalidBody      = "Invalid request body"
	msgStale            = "Request too old or too far in future"
	msgInvalidSignature = "Invalid signature"
	msgDuplicate        = "Round already processed"
	msgUpstreamFailed   = "LootLocker API request failed"
)

const maxBodyBytes = 64 << 10

// handleCreditCurrency settles one game round. Steps run strictly in order:
// freshness, signature, dedup, balance update, dedup commit.
func (a *API) handleCreditCurrency(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r.Context())

	var req settlement.Request
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		log.Warn("Rejected settlement", "reason", "malformed body", "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	log = log.With("wallet_id", req.WalletID, "round_id", req.RoundID)
	log.Info("Settlement received", "amount", req.Amount.String(), "timestamp", req.Timestamp.String())

	if !req.Fresh(a.now(), a.config.FreshnessWindow) {
		log.Warn("Rejected settlement", "reason", "stale timestamp")
		writeError(w, http.StatusRequestTimeout, msgStale)
		return
	}

	if !signature.Verify(req.Payload(), req.Signature, a.config.HMACSecret) {
		log.Warn("Rejected settlement", "reason", "invalid signature")
		writeError(w, http.StatusForbidden, msgInvalidSignature)
		return
	}

	amount, err := req.ParseAmount()
	if err != nil {
		log.Warn("Rejected settlement", "reason", "amount is not a number", "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	key := req.Key()
	done, err := a.guard.Acquire(r.Context(), key)
	if errors.Is(err, replay.ErrAlreadyProcessed) {
		log.Warn("Rejected settlement", "reason", "duplicate round")
		writeError(w, http.StatusConflict, msgDuplicate)
		return
	}
	if err != nil {
		log.Warn("Settlement abandoned while waiting for round", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Request cancelled")
		return
	}

	adj := settlement.NewAdjustment(req.WalletID, a.config.CurrencyID, amount)

	// Upstream calls run to completion even if the client disconnects.
	if _, err := a.ledger.Apply(context.WithoutCancel(r.Context()), adj); err != nil {
		a.guard.Release(key, done)
		log.Error("LootLocker API error", "direction", adj.Direction, "amount", adj.Magnitude(), "error", err)
		writeError(w, http.StatusInternalServerError, msgUpstreamFailed)
		return
	}
	a.guard.Complete(key, done)

	log.Info("Settlement applied", "direction", adj.Direction, "amount", adj.Magnitude())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
