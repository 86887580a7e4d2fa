package strategy_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jmartynas/socials/strategy"
)

type fakeProvider struct {
	*httptest.Server
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-" + r.PostForm.Get("code") + r.PostForm.Get("refresh_token"),
			"token_type":    "bearer",
			"refresh_token": "refresh",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-code" {
			http.Error(w, `{"error":"bad token"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"42","name":"Ada Lovelace","email":"ada@example.com"}`))
	})
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

func newStrategy(p *fakeProvider, sep string) *strategy.Strategy {
	return strategy.New("fake", strategy.Options{
		ClientID:         "client",
		ClientSecret:     "secret",
		CallbackURL:      "https://app.example.com/auth/fake/callback",
		AuthorizationURL: p.URL + "/authorize",
		TokenURL:         p.URL + "/token",
		Scopes:           []string{"public_profile", "email"},
		ScopeSeparator:   sep,
		AuthParams:       map[string]string{"prompt": "consent", "empty": ""},
		HTTPClient:       p.Client(),
	}, func(ctx context.Context, s *strategy.Strategy, tok *oauth2.Token) (*strategy.Profile, error) {
		var u struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		raw, err := s.GetObject(ctx, tok, p.URL+"/me", nil, &u)
		if err != nil {
			return nil, err
		}
		return &strategy.Profile{
			ID:          u.ID,
			DisplayName: u.Name,
			Emails:      strategy.Values(u.Email),
			Raw:         raw,
		}, nil
	})
}

func TestStrategy_AuthCodeURL(t *testing.T) {
	p := newFakeProvider(t)

	t.Run("ok: scopes joined with separator", func(t *testing.T) {
		u, err := url.Parse(newStrategy(p, ",").AuthCodeURL("xyz"))
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "/authorize", u.Path)
		assert.Equal(t, "public_profile,email", q.Get("scope"))
		assert.Equal(t, "xyz", q.Get("state"))
		assert.Equal(t, "code", q.Get("response_type"))
		assert.Equal(t, "client", q.Get("client_id"))
		assert.Equal(t, "https://app.example.com/auth/fake/callback", q.Get("redirect_uri"))
		assert.Equal(t, "consent", q.Get("prompt"))
		assert.False(t, q.Has("empty"), "empty params should be dropped")
	})

	t.Run("ok: default separator is a space", func(t *testing.T) {
		s := newStrategy(p, "")
		u, err := url.Parse(s.AuthCodeURL("xyz"))
		require.NoError(t, err)
		assert.Equal(t, "public_profile email", u.Query().Get("scope"))
		assert.Equal(t, " ", s.ScopeSeparator())
	})

	t.Run("ok: extra options are appended", func(t *testing.T) {
		u, err := url.Parse(newStrategy(p, ",").AuthCodeURL("xyz", oauth2.SetAuthURLParam("login_hint", "ada")))
		require.NoError(t, err)
		assert.Equal(t, "ada", u.Query().Get("login_hint"))
	})
}

func TestStrategy_ExchangeAndProfile(t *testing.T) {
	p := newFakeProvider(t)
	s := newStrategy(p, ",")
	ctx := context.Background()

	tok, err := s.Exchange(ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, "access-code", tok.AccessToken)

	profile, err := s.UserProfile(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "fake", profile.Provider)
	assert.Equal(t, "42", profile.ID)
	assert.Equal(t, "Ada Lovelace", profile.DisplayName)
	assert.Equal(t, "ada@example.com", profile.Email())
	assert.Equal(t, "", profile.Photo())
	assert.Equal(t, "Ada Lovelace", profile.Raw["name"])

	t.Run("err: empty code", func(t *testing.T) {
		_, err := s.Exchange(ctx, "")
		assert.ErrorIs(t, err, strategy.ErrMissingCode)
	})

	t.Run("err: missing token", func(t *testing.T) {
		_, err := s.UserProfile(ctx, nil)
		assert.ErrorIs(t, err, strategy.ErrMissingToken)
	})

	t.Run("err: user info refused", func(t *testing.T) {
		_, err := s.UserProfile(ctx, &oauth2.Token{AccessToken: "other"})
		var perr *strategy.ProfileError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
		assert.Equal(t, "fake", perr.Provider)
	})

	t.Run("ok: refresh", func(t *testing.T) {
		tok, err := s.Refresh(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "access-r1", tok.AccessToken)
	})
}

func TestStrategy_NilProfile(t *testing.T) {
	s := strategy.New("empty", strategy.Options{}, func(context.Context, *strategy.Strategy, *oauth2.Token) (*strategy.Profile, error) {
		return nil, nil
	})
	p, err := s.UserProfile(context.Background(), &oauth2.Token{AccessToken: "tok"})
	assert.Nil(t, p)
	assert.ErrorIs(t, err, strategy.ErrMissingProfile)
}

func TestValues(t *testing.T) {
	assert.Nil(t, strategy.Values("", ""))
	assert.Equal(t, []strategy.Value{{Value: "a"}, {Value: "b"}}, strategy.Values("a", "", "b"))
}

func newCookieStore() sessions.Store {
	return sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
}

func TestAuthenticator(t *testing.T) {
	p := newFakeProvider(t)
	s := newStrategy(p, ",")

	var verified *strategy.Profile
	auth := strategy.NewAuthenticator(s, strategy.NewCookieStateStore(newCookieStore()),
		func(ctx context.Context, params strategy.VerifyParams) (string, error) {
			verified = params.Profile
			return "user-" + params.Profile.ID, nil
		})

	start := func(t *testing.T) (string, []*http.Cookie) {
		t.Helper()
		rec := httptest.NewRecorder()
		require.NoError(t, auth.Redirect(rec, httptest.NewRequest(http.MethodGet, "/auth/fake/login", nil)))
		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		state := loc.Query().Get("state")
		require.Len(t, state, 32)
		return state, rec.Result().Cookies()
	}
	callback := func(query string, cookies []*http.Cookie) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/auth/fake/callback?"+query, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return req
	}

	t.Run("ok: full login", func(t *testing.T) {
		state, cookies := start(t)
		user, err := auth.Callback(httptest.NewRecorder(), callback("state="+state+"&code=code", cookies))
		require.NoError(t, err)
		assert.Equal(t, "user-42", user)
		require.NotNil(t, verified)
		assert.Equal(t, "ada@example.com", verified.Email())
	})

	t.Run("err: state mismatch consumes the stored state", func(t *testing.T) {
		state, cookies := start(t)
		rec := httptest.NewRecorder()
		_, err := auth.Callback(rec, callback("state=forged&code=code", cookies))
		assert.ErrorIs(t, err, strategy.ErrStateMismatch)

		// The genuine state is gone after a forged attempt.
		_, err = auth.Callback(httptest.NewRecorder(), callback("state="+state+"&code=code", rec.Result().Cookies()))
		assert.ErrorIs(t, err, strategy.ErrMissingState)
	})

	t.Run("err: no stored state", func(t *testing.T) {
		_, err := auth.Callback(httptest.NewRecorder(), callback("state=x&code=code", nil))
		assert.ErrorIs(t, err, strategy.ErrMissingState)
	})

	t.Run("err: missing code", func(t *testing.T) {
		state, cookies := start(t)
		_, err := auth.Callback(httptest.NewRecorder(), callback("state="+state, cookies))
		assert.ErrorIs(t, err, strategy.ErrMissingCode)
	})

	t.Run("err: provider denied access", func(t *testing.T) {
		_, cookies := start(t)
		_, err := auth.Callback(httptest.NewRecorder(), callback("error=access_denied&error_description=nope", cookies))
		var aerr *strategy.AuthorizationError
		require.True(t, errors.As(err, &aerr))
		assert.Equal(t, "access_denied", aerr.Code)
		assert.Equal(t, "nope", aerr.Description)
	})
}

func TestCookieStateStore_OneShot(t *testing.T) {
	store := strategy.NewCookieStateStore(newCookieStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Put(rec, req, "github", "s1"))
	cookies := rec.Result().Cookies()

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	t.Run("err: other provider has no state", func(t *testing.T) {
		_, err := store.Take(httptest.NewRecorder(), req, "google")
		assert.ErrorIs(t, err, strategy.ErrMissingState)
	})

	rec = httptest.NewRecorder()
	got, err := store.Take(rec, req, "github")
	require.NoError(t, err)
	assert.Equal(t, "s1", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	_, err = store.Take(httptest.NewRecorder(), req, "github")
	assert.ErrorIs(t, err, strategy.ErrMissingState)
}
