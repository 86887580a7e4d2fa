package strategy

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	DefaultStateSession = "oauth_state"
	StateMaxAge         = 600
)

// StateStore keeps the state issued with an authorization redirect until the
// provider calls back. Take must forget the state it returns.
type StateStore interface {
	Put(w http.ResponseWriter, r *http.Request, provider, state string) error
	Take(w http.ResponseWriter, r *http.Request, provider string) (string, error)
}

// CookieStateStore keeps states in a gorilla session, one value per provider.
type CookieStateStore struct {
	Store       sessions.Store
	SessionName string
}

func NewCookieStateStore(store sessions.Store) *CookieStateStore {
	return &CookieStateStore{Store: store, SessionName: DefaultStateSession}
}

func (c *CookieStateStore) Put(w http.ResponseWriter, r *http.Request, provider, state string) error {
	session, err := c.Store.Get(r, c.sessionName())
	if err != nil && session == nil {
		return fmt.Errorf("get state session: %w", err)
	}
	session.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   StateMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	}
	session.Values[stateKey(provider)] = state
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save state session: %w", err)
	}
	return nil
}

func (c *CookieStateStore) Take(w http.ResponseWriter, r *http.Request, provider string) (string, error) {
	session, err := c.Store.Get(r, c.sessionName())
	if err != nil && session == nil {
		return "", fmt.Errorf("get state session: %w", err)
	}
	key := stateKey(provider)
	state, _ := session.Values[key].(string)
	if state == "" {
		return "", ErrMissingState
	}
	delete(session.Values, key)
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("save state session: %w", err)
	}
	return state, nil
}

func (c *CookieStateStore) sessionName() string {
	if c.SessionName == "" {
		return DefaultStateSession
	}
	return c.SessionName
}

func stateKey(provider string) string {
	return "oauth2:" + provider + ":state"
}
