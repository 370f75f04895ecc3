package lootlocker

import "fmt"

// AuthError means a server session could not be started.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not get server token: %v", e.Err)
	}
	return fmt.Sprintf("could not get server token: status %d: %s", e.StatusCode, e.Body)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// UpstreamError means a balance call failed or was rejected.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("balance request failed: %v", e.Err)
	}
	return fmt.Sprintf("balance request failed (%d): %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
