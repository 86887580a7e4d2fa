package providers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jmartynas/socials/providers"
	"github.com/jmartynas/socials/strategy"
)

// providerAPI answers requests that were addressed to the real provider hosts.
type providerAPI struct {
	mu       sync.Mutex
	requests []*http.Request
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
	server   *httptest.Server
}

func newProviderAPI(t *testing.T) *providerAPI {
	t.Helper()
	api := &providerAPI{routes: map[string]func(http.ResponseWriter, *http.Request){}}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.requests = append(api.requests, r.Clone(context.Background()))
		h, ok := api.routes[r.Header.Get("X-Original-Host")+r.URL.Path]
		api.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(api.server.Close)
	return api
}

// handle registers a JSON answer for rawURL's host and path.
func (a *providerAPI) handle(rawURL string, status int, body string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[u.Host+u.Path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (a *providerAPI) last() *http.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.requests) == 0 {
		return nil
	}
	return a.requests[len(a.requests)-1]
}

func (a *providerAPI) client() *http.Client {
	target, _ := url.Parse(a.server.URL)
	return &http.Client{Transport: rewriteTransport{target: target}}
}

type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("X-Original-Host", r.URL.Host)
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	r.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func authQuery(t *testing.T, s *strategy.Strategy) url.Values {
	t.Helper()
	u, err := url.Parse(s.AuthCodeURL("state"))
	require.NoError(t, err)
	return u.Query()
}

var token = &oauth2.Token{AccessToken: "tok", TokenType: "bearer"}

func TestParse(t *testing.T) {
	for _, p := range providers.All() {
		got, err := providers.Parse(strings.ToUpper(p.String()))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := providers.Parse("myspace")
	assert.ErrorIs(t, err, providers.ErrUnknownProvider)
	assert.Len(t, providers.All(), 6)
}

func TestDiscord(t *testing.T) {
	api := newProviderAPI(t)
	s := providers.NewDiscord(providers.DiscordOptions{
		ClientID:    "id",
		CallbackURL: "https://app/cb",
		Prompt:      "consent",
		HTTPClient:  api.client(),
	})

	t.Run("ok: authorization url", func(t *testing.T) {
		assert.Equal(t, "discord", s.Name())
		assert.Equal(t, providers.DiscordAuthorizationURL, s.Config().Endpoint.AuthURL)
		assert.Equal(t, providers.DiscordTokenURL, s.Config().Endpoint.TokenURL)
		q := authQuery(t, s)
		assert.Equal(t, "identify email", q.Get("scope"))
		assert.Equal(t, "consent", q.Get("prompt"))
	})

	t.Run("ok: profile", func(t *testing.T) {
		api.handle(providers.DiscordUserInfoURL, http.StatusOK,
			`{"id":"80351110224678912","username":"nelly","global_name":"Nelly","avatar":"a_8342729096ea3675442027381ff50dfe","email":"nelly@discord.com","verified":true}`)
		p, err := s.UserProfile(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok", api.last().Header.Get("Authorization"))
		assert.Equal(t, "discord", p.Provider)
		assert.Equal(t, "80351110224678912", p.ID)
		assert.Equal(t, "Nelly", p.DisplayName)
		assert.Equal(t, "nelly@discord.com", p.Email())
		assert.Equal(t, "https://cdn.discordapp.com/avatars/80351110224678912/a_8342729096ea3675442027381ff50dfe.gif", p.Photo())
		assert.Equal(t, "nelly", p.Raw["username"])
	})

	t.Run("ok: username fallback and no avatar", func(t *testing.T) {
		api.handle(providers.DiscordUserInfoURL, http.StatusOK, `{"id":"1","username":"nelly"}`)
		p, err := s.UserProfile(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "nelly", p.DisplayName)
		assert.Empty(t, p.Emails)
		assert.Empty(t, p.Photos)
	})
}

func TestDiscordAvatarURL(t *testing.T) {
	assert.Equal(t, "", providers.DiscordAvatarURL("1", ""))
	assert.Equal(t, "https://cdn.discordapp.com/avatars/1/abc.png", providers.DiscordAvatarURL("1", "abc"))
}

func TestGoogle(t *testing.T) {
	api := newProviderAPI(t)
	s := providers.NewGoogle(providers.GoogleOptions{
		ClientID:             "id",
		CallbackURL:          "https://app/cb",
		AccessType:           "offline",
		IncludeGrantedScopes: true,
		HostedDomain:         "example.com",
		HTTPClient:           api.client(),
	})

	t.Run("ok: authorization url", func(t *testing.T) {
		q := authQuery(t, s)
		assert.Equal(t, "openid https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/userinfo.email", q.Get("scope"))
		assert.Equal(t, "offline", q.Get("access_type"))
		assert.Equal(t, "true", q.Get("include_granted_scopes"))
		assert.Equal(t, "example.com", q.Get("hd"))
		assert.False(t, q.Has("prompt"))
		assert.False(t, q.Has("login_hint"))
	})

	t.Run("ok: custom scopes", func(t *testing.T) {
		s := providers.NewGoogle(providers.GoogleOptions{Scopes: []providers.GoogleScope{providers.GoogleScopeEmail}})
		assert.Equal(t, []string{"https://www.googleapis.com/auth/userinfo.email"}, s.Scopes())
	})

	t.Run("ok: profile", func(t *testing.T) {
		api.handle(providers.GoogleUserInfoURL, http.StatusOK,
			`{"sub":"1097","name":"Ada Lovelace","given_name":"Ada","family_name":"Lovelace","picture":"https://lh3/p.jpg","email":"ada@example.com","email_verified":true}`)
		p, err := s.UserProfile(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "google", p.Provider)
		assert.Equal(t, "1097", p.ID)
		assert.Equal(t, "Ada Lovelace", p.DisplayName)
		assert.Equal(t, &strategy.Name{GivenName: "Ada", FamilyName: "Lovelace"}, p.Name)
		assert.Equal(t, "ada@example.com", p.Email())
		assert.Equal(t, "https://lh3/p.jpg", p.Photo())
	})

	t.Run("err: refused", func(t *testing.T) {
		api.handle(providers.GoogleUserInfoURL, http.StatusUnauthorized, `{"error":"invalid_token"}`)
		_, err := s.UserProfile(context.Background(), token)
		var perr *strategy.ProfileError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "google", perr.Provider)
		assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	})
}

func TestGitHub(t *testing.T) {
	api := newProviderAPI(t)
	signup := false
	s := providers.NewGitHub(providers.GitHubOptions{
		ClientID:    "id",
		CallbackURL: "https://app/cb",
		AllowSignup: &signup,
		HTTPClient:  api.client(),
	})
	user := `{"id":583231,"login":"octocat","name":"The Octocat","email":"public@github.com","avatar_url":"https://avatars/583231"}`

	t.Run("ok: authorization url", func(t *testing.T) {
		q := authQuery(t, s)
		assert.Equal(t, "user:email", q.Get("scope"))
		assert.Equal(t, "false", q.Get("allow_signup"))
	})

	t.Run("ok: profile with emails", func(t *testing.T) {
		api.handle(providers.GitHubUserInfoURL, http.StatusOK, user)
		api.handle(providers.GitHubUserEmailsURL, http.StatusOK,
			`[{"email":"other@github.com","primary":false,"verified":true},{"email":"octocat@github.com","primary":true,"verified":true}]`)
		p, err := s.UserProfile(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "github", p.Provider)
		assert.Equal(t, "583231", p.ID)
		assert.Equal(t, "octocat", p.DisplayName)
		assert.Equal(t, "The Octocat", p.Name.GivenName)
		assert.Equal(t, []strategy.Value{
			{Value: "octocat@github.com", Type: "primary"},
			{Value: "other@github.com"},
		}, p.Emails)
		assert.Equal(t, "https://avatars/583231", p.Photo())

		last := api.last()
		assert.Equal(t, "socials", last.Header.Get("User-Agent"))
		assert.Equal(t, "application/vnd.github+json", last.Header.Get("Accept"))
	})

	t.Run("ok: emails refused falls back to public email", func(t *testing.T) {
		api.handle(providers.GitHubUserInfoURL, http.StatusOK, user)
		api.handle(providers.GitHubUserEmailsURL, http.StatusForbidden, `{"message":"Resource not accessible"}`)
		p, err := s.UserProfile(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, []strategy.Value{{Value: "public@github.com"}}, p.Emails)
	})

	t.Run("err: emails server error", func(t *testing.T) {
		api.handle(providers.GitHubUserInfoURL, http.StatusOK, user)
		api.handle(providers.GitHubUserEmailsURL, http.StatusBadGateway, `{}`)
		_, err := s.UserProfile(context.Background(), token)
		var perr *strategy.ProfileError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, http.StatusBadGateway, perr.StatusCode)
	})
}

func TestFacebook(t *testing.T) {
	api := newProviderAPI(t)
	s := providers.NewFacebook(providers.FacebookOptions{
		ClientID:           "id",
		CallbackURL:        "https://app/cb",
		ExtraProfileFields: []string{"picture", "email", "birthday"},
		HTTPClient:         api.client(),
	})

	t.Run("ok: endpoints and scopes", func(t *testing.T) {
		assert.Equal(t, "https://www.facebook.com/v18.0/dialog/oauth", s.Config().Endpoint.AuthURL)
		assert.Equal(t, "https://graph.facebook.com/v18.0/oauth/access_token", s.Config().Endpoint.TokenURL)
		assert.Equal(t, "public_profile,email", authQuery(t, s).Get("scope"))
	})

	t.Run("ok: graph version", func(t *testing.T) {
		s := providers.NewFacebook(providers.FacebookOptions{GraphAPIVersion: "v19.0"})
		assert.Equal(t, "https://www.facebook.com/v19.0/dialog/oauth", s.Config().Endpoint.AuthURL)
	})

	t.Run("ok: profile", func(t *testing.T) {
		api.handle(providers.FacebookUserInfoURL("v18.0"), http.StatusOK,
			`{"id":"10","name":"Ada B Lovelace","first_name":"Ada","middle_name":"B","last_name":"Lovelace","email":"ada@fb.com","birthday":"12/10/1815","picture":{"data":{"url":"https://fb/pic.jpg"}}}`)
		p, err := s.UserProfile(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "id,email,name,first_name,middle_name,last_name,picture,birthday", api.last().URL.Query().Get("fields"))
		assert.Equal(t, "facebook", p.Provider)
		assert.Equal(t, "10", p.ID)
		assert.Equal(t, "Ada B Lovelace", p.DisplayName)
		assert.Equal(t, &strategy.Name{GivenName: "Ada", MiddleName: "B", FamilyName: "Lovelace"}, p.Name)
		assert.Equal(t, "ada@fb.com", p.Email())
		assert.Equal(t, "https://fb/pic.jpg", p.Photo())
		assert.Equal(t, "12/10/1815", p.Raw["birthday"])
	})
}

func TestTikTok(t *testing.T) {
	api := newProviderAPI(t)
	s := providers.NewTikTok(providers.TikTokOptions{
		ClientID:           "id",
		CallbackURL:        "https://app/cb",
		Scopes:             []providers.TikTokScope{providers.TikTokScopePublicProfile, providers.TikTokScopeUserVideos},
		ExtraProfileFields: []string{"id", "link"},
		HTTPClient:         api.client(),
	})

	t.Run("ok: endpoints and scopes", func(t *testing.T) {
		assert.Equal(t, providers.TikTokAuthorizationURL, s.Config().Endpoint.AuthURL)
		assert.Equal(t, providers.TikTokTokenURL, s.Config().Endpoint.TokenURL)
		assert.Equal(t, "public_profile,user_videos", authQuery(t, s).Get("scope"))
	})

	t.Run("ok: default scopes", func(t *testing.T) {
		s := providers.NewTikTok(providers.TikTokOptions{})
		assert.Equal(t, []string{"public_profile", "email"}, s.Scopes())
		assert.Equal(t, ",", s.ScopeSeparator())
	})

	t.Run("ok: profile", func(t *testing.T) {
		api.handle(providers.TikTokUserInfoURL, http.StatusOK,
			`{"id":"7","name":"Tik Tok","first_name":"Tik","last_name":"Tok","email":"t@tiktok.com","link":"https://tiktok/t"}`)
		p, err := s.UserProfile(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "id,email,name,first_name,middle_name,last_name,link", api.last().URL.Query().Get("fields"))
		assert.Equal(t, "Bearer tok", api.last().Header.Get("Authorization"))
		assert.Equal(t, "tiktok", p.Provider)
		assert.Equal(t, "7", p.ID)
		assert.Equal(t, "Tik Tok", p.DisplayName)
		assert.Equal(t, &strategy.Name{GivenName: "Tik", FamilyName: "Tok"}, p.Name)
		assert.Equal(t, []strategy.Value{{Value: "t@tiktok.com"}}, p.Emails)
		assert.Empty(t, p.Photos)
		assert.Equal(t, "https://tiktok/t", p.Raw["link"])
	})
}

func TestMicrosoft(t *testing.T) {
	api := newProviderAPI(t)
	s := providers.NewMicrosoft(providers.MicrosoftOptions{
		ClientID:    "id",
		CallbackURL: "https://app/cb",
		Prompt:      "select_account",
		HTTPClient:  api.client(),
	})

	t.Run("ok: endpoints", func(t *testing.T) {
		assert.Equal(t, "https://login.microsoftonline.com/common/oauth2/v2.0/authorize", s.Config().Endpoint.AuthURL)
		assert.Equal(t, "https://login.microsoftonline.com/common/oauth2/v2.0/token", s.Config().Endpoint.TokenURL)
		q := authQuery(t, s)
		assert.Equal(t, "openid profile email", q.Get("scope"))
		assert.Equal(t, "select_account", q.Get("prompt"))
	})

	t.Run("ok: tenant", func(t *testing.T) {
		s := providers.NewMicrosoft(providers.MicrosoftOptions{Tenant: "consumers"})
		assert.Equal(t, "https://login.microsoftonline.com/consumers/oauth2/v2.0/authorize", s.Config().Endpoint.AuthURL)
	})

	t.Run("ok: profile", func(t *testing.T) {
		api.handle(providers.MicrosoftUserInfoURL, http.StatusOK,
			`{"sub":"OLu859","name":"Megan Bowen","given_name":"Megan","family_name":"Bowen","email":"megan@contoso.com"}`)
		p, err := s.UserProfile(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "microsoft", p.Provider)
		assert.Equal(t, "OLu859", p.ID)
		assert.Equal(t, "Megan Bowen", p.DisplayName)
		assert.Equal(t, &strategy.Name{GivenName: "Megan", FamilyName: "Bowen"}, p.Name)
		assert.Equal(t, "megan@contoso.com", p.Email())
	})
}
