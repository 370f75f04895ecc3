package lootlocker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const sessionPath = "/server/session"

type sessionRequest struct {
	GameVersion string `json:"game_version"`
}

type sessionResponse struct {
	Token string `json:"token"`
}

// Sessions caches the server session token.
//
// The token is fetched lazily on first use and replaced only when a caller
// reports it was rejected (Refresh). There is no timer-based expiry.
// Concurrent fetches are coalesced into one upstream call.
type Sessions struct {
	client      *Client
	serverKey   string
	gameVersion string

	mu    sync.RWMutex
	token *oauth2.Token
	group singleflight.Group
}

// NewSessions creates a session manager with no cached token.
func NewSessions(client *Client, serverKey, gameVersion string) *Sessions {
	return &Sessions{
		client:      client,
		serverKey:   serverKey,
		gameVersion: gameVersion,
	}
}

// Token returns the cached token, starting a session if there is none.
func (s *Sessions) Token(ctx context.Context) (*oauth2.Token, error) {
	if tok := s.cached(); tok.Valid() {
		return tok, nil
	}
	return s.start(ctx)
}

// Refresh discards the cached token and starts a new session.
func (s *Sessions) Refresh(ctx context.Context) (*oauth2.Token, error) {
	s.set(nil)
	return s.start(ctx)
}

func (s *Sessions) cached() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Sessions) set(tok *oauth2.Token) {
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
}

func (s *Sessions) start(ctx context.Context) (*oauth2.Token, error) {
	// The shared call outlives any single waiter.
	ctx = context.WithoutCancel(ctx)

	v, err, _ := s.group.Do(sessionPath, func() (any, error) {
		if tok := s.cached(); tok.Valid() {
			return tok, nil
		}
		tok, err := s.fetch(ctx)
		if err != nil {
			s.set(nil)
			slog.Error("Failed to start server session", "error", err)
			return nil, err
		}
		s.set(tok)
		slog.Info("Server session started")
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

func (s *Sessions) fetch(ctx context.Context) (*oauth2.Token, error) {
	resp, err := s.client.post(ctx, sessionPath,
		map[string]string{"x-server-key": s.serverKey},
		sessionRequest{GameVersion: s.gameVersion},
	)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	if !resp.ok() {
		return nil, &AuthError{StatusCode: resp.status, Body: string(resp.body)}
	}

	var out sessionResponse
	if err := json.Unmarshal(resp.body, &out); err != nil || out.Token == "" {
		return nil, &AuthError{StatusCode: resp.status, Body: string(resp.body)}
	}

	return &oauth2.Token{AccessToken: out.Token}, nil
}
