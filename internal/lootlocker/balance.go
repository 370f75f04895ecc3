package lootlocker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/susu3304/settlerelay/internal/settlement"
)

const balancesPath = "/server/balances/"

type balanceRequest struct {
	Amount     string `json:"amount"`
	WalletID   string `json:"wallet_id"`
	CurrencyID string `json:"currency_id"`
}

// BalanceUpdater credits and debits wallets using the session token.
type BalanceUpdater struct {
	client   *Client
	sessions *Sessions
}

// NewBalanceUpdater creates a balance updater.
func NewBalanceUpdater(client *Client, sessions *Sessions) *BalanceUpdater {
	return &BalanceUpdater{client: client, sessions: sessions}
}

// Apply sends the adjustment upstream and returns the raw response body.
//
// If the session token is rejected with 401 the session is refreshed and the
// call is retried once. Every other failure is returned as is.
func (u *BalanceUpdater) Apply(ctx context.Context, adj settlement.Adjustment) (json.RawMessage, error) {
	tok, err := u.sessions.Token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := u.send(ctx, tok, adj)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusUnauthorized {
		slog.Warn("Server session rejected, refreshing",
			"wallet_id", adj.WalletID,
			"direction", adj.Direction,
		)
		tok, err = u.sessions.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		resp, err = u.send(ctx, tok, adj)
		if err != nil {
			return nil, err
		}
	}

	if !resp.ok() {
		return nil, &UpstreamError{StatusCode: resp.status, Body: string(resp.body)}
	}
	return json.RawMessage(resp.body), nil
}

func (u *BalanceUpdater) send(ctx context.Context, tok *oauth2.Token, adj settlement.Adjustment) (*reply, error) {
	resp, err := u.client.post(ctx, balancesPath+string(adj.Direction),
		map[string]string{"x-auth-token": tok.AccessToken},
		balanceRequest{
			Amount:     adj.Magnitude(),
			WalletID:   adj.WalletID,
			CurrencyID: adj.CurrencyID,
		},
	)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	return resp, nil
}
