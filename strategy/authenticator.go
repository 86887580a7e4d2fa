package strategy

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// VerifyParams is what a login produced: the provider's tokens, the
// normalized profile and the callback request.
type VerifyParams struct {
	Token   *oauth2.Token
	Profile *Profile
	Request *http.Request
}

// VerifyFunc turns a successful provider login into the application's user.
type VerifyFunc[U any] func(ctx context.Context, params VerifyParams) (U, error)

type Authenticator[U any] struct {
	strategy *Strategy
	states   StateStore
	verify   VerifyFunc[U]
	log      logrus.FieldLogger
}

func NewAuthenticator[U any](s *Strategy, states StateStore, verify VerifyFunc[U]) *Authenticator[U] {
	return &Authenticator[U]{
		strategy: s,
		states:   states,
		verify:   verify,
		log:      s.Logger().WithField("thread", "authenticator"),
	}
}

func (a *Authenticator[U]) Strategy() *Strategy { return a.strategy }

// Redirect stores a fresh state and sends the user to the provider.
func (a *Authenticator[U]) Redirect(w http.ResponseWriter, r *http.Request) error {
	state, err := randomState()
	if err != nil {
		return fmt.Errorf("generate state: %w", err)
	}
	if err := a.states.Put(w, r, a.strategy.Name(), state); err != nil {
		return err
	}
	http.Redirect(w, r, a.strategy.AuthCodeURL(state), http.StatusFound)
	return nil
}

// Callback completes a login started by Redirect.
func (a *Authenticator[U]) Callback(w http.ResponseWriter, r *http.Request) (U, error) {
	var zero U
	q := r.URL.Query()

	if code := q.Get("error"); code != "" {
		// Drop the pending state so it cannot be replayed.
		_, _ = a.states.Take(w, r, a.strategy.Name())
		return zero, &AuthorizationError{
			Code:        code,
			Description: q.Get("error_description"),
			URI:         q.Get("error_uri"),
		}
	}

	stored, err := a.states.Take(w, r, a.strategy.Name())
	if err != nil {
		return zero, err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(q.Get("state"))) != 1 {
		return zero, ErrStateMismatch
	}

	code := q.Get("code")
	if code == "" {
		return zero, ErrMissingCode
	}

	ctx := r.Context()
	tok, err := a.strategy.Exchange(ctx, code)
	if err != nil {
		return zero, err
	}
	profile, err := a.strategy.UserProfile(ctx, tok)
	if err != nil {
		return zero, fmt.Errorf("load profile: %w", err)
	}
	user, err := a.verify(ctx, VerifyParams{Token: tok, Profile: profile, Request: r})
	if err != nil {
		return zero, fmt.Errorf("verify: %w", err)
	}
	a.log.WithField("id", profile.ID).Info("login verified")
	return user, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
