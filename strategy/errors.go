package strategy

import (
	"errors"
	"fmt"
)

var (
	ErrMissingState   = errors.New("oauth2: missing stored state")
	ErrStateMismatch  = errors.New("oauth2: state does not match")
	ErrMissingCode    = errors.New("oauth2: missing authorization code")
	ErrMissingToken   = errors.New("oauth2: missing access token")
	ErrMissingProfile = errors.New("oauth2: provider returned no profile")
)

// AuthorizationError is returned by Callback when the provider redirected
// back with an error instead of a code, e.g. when the user denied access.
type AuthorizationError struct {
	Code        string
	Description string
	URI         string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth2: authorization failed: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("oauth2: authorization failed: %s", e.Code)
}

// ProfileError is returned when a provider answers a user-info request
// with a non-2xx status.
type ProfileError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("%s: user info request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}
