package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"

	"github.com/jmartynas/socials/internal/account"
	"github.com/jmartynas/socials/internal/config"
	"github.com/jmartynas/socials/internal/handlers"
	"github.com/jmartynas/socials/internal/middleware"
	"github.com/jmartynas/socials/providers"
	"github.com/jmartynas/socials/strategy"
	"github.com/jmartynas/socials/structs"
)

const providerTimeout = 10 * time.Second

type Server struct {
	httpServer *http.Server
	log        logrus.FieldLogger
	tlsCert    string
	tlsKey     string
}

// New wires the routes. dbc may be nil, states is used for every provider.
func New(cfg *config.Config, log logrus.FieldLogger, dbc dbresolver.DB, states strategy.StateStore) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.Health)
	mux.HandleFunc("GET /ready", handlers.Ready(dbc))

	if cfg.OAuth.BaseURL != "" && cfg.OAuth.JWTSecret != "" {
		client := &http.Client{Timeout: providerTimeout}
		verify := account.Verifier(dbc, log)
		authenticators := make(map[string]*strategy.Authenticator[*structs.Account])
		for _, s := range Strategies(cfg.OAuth, client, log) {
			authenticators[s.Name()] = strategy.NewAuthenticator(s, states, verify)
		}
		log.WithField("providers", cfg.OAuth.Enabled()).Info("oauth providers enabled")

		authH := &handlers.AuthHandler{
			Authenticators: authenticators,
			JWTSecret:      cfg.OAuth.JWTSecret,
			SuccessURL:     cfg.OAuth.SuccessURL,
			DB:             dbc,
			Log:            log.WithField("thread", "auth"),
			Secure:         cfg.Server.TLS(),
		}
		mux.HandleFunc("GET /auth/{provider}/login", authH.Login)
		mux.HandleFunc("GET /auth/{provider}/callback", authH.Callback)
		mux.Handle("GET /auth/me", middleware.RequireSession(cfg.OAuth.JWTSecret, log)(http.HandlerFunc(authH.Me)))
		mux.HandleFunc("GET /auth/logout", authH.Logout)
	}

	trustedProxyNetworks, err := middleware.ParseTrustedProxyCIDRs(cfg.Server.TrustedProxyCIDRs)
	if err != nil {
		log.WithError(err).
			WithField("value", cfg.Server.TrustedProxyCIDRs).
			Warn("invalid trusted proxy CIDRs, real IP will use connection remote addr")
		trustedProxyNetworks = nil
	}

	h := middleware.NoCache(mux)
	h = middleware.Recoverer(log)(h)
	h = middleware.Logger(log)(h)
	h = middleware.RequestID(h)
	h = middleware.RealIPWith(trustedProxyNetworks)(h)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return &Server{
		httpServer: srv,
		log:        log,
		tlsCert:    cfg.Server.TLSCertFile,
		tlsKey:     cfg.Server.TLSKeyFile,
	}
}

// Handler exposes the routed handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	if s.tlsCert != "" && s.tlsKey != "" {
		s.log.WithField("addr", s.httpServer.Addr).Info("server starting (HTTPS)")
		return s.httpServer.ListenAndServeTLS(s.tlsCert, s.tlsKey)
	}
	s.log.WithField("addr", s.httpServer.Addr).Info("server starting")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// NewCookieStates keeps authorization states in a signed cookie.
func NewCookieStates(cfg config.OAuthConfig) strategy.StateStore {
	return strategy.NewCookieStateStore(sessions.NewCookieStore(cfg.StateKey()))
}

// Strategies builds a strategy for every provider with credentials.
func Strategies(cfg config.OAuthConfig, client *http.Client, log logrus.FieldLogger) []*strategy.Strategy {
	var out []*strategy.Strategy
	for _, name := range cfg.Enabled() {
		p, err := providers.Parse(name)
		if err != nil {
			continue
		}
		out = append(out, newStrategy(p, cfg, client, log))
	}
	return out
}

func newStrategy(p providers.Provider, cfg config.OAuthConfig, client *http.Client, log logrus.FieldLogger) *strategy.Strategy {
	callback := cfg.CallbackURL(p.String())
	switch p {
	case providers.Discord:
		c := cfg.Discord
		return providers.NewDiscord(providers.DiscordOptions{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			CallbackURL:  callback,
			Scopes:       scopes[providers.DiscordScope](c.Scopes),
			Prompt:       c.Prompt,
			HTTPClient:   client,
			Logger:       log,
		})
	case providers.Google:
		c := cfg.Google
		return providers.NewGoogle(providers.GoogleOptions{
			ClientID:             c.ClientID,
			ClientSecret:         c.ClientSecret,
			CallbackURL:          callback,
			Scopes:               scopes[providers.GoogleScope](c.Scopes),
			AccessType:           c.AccessType,
			IncludeGrantedScopes: c.IncludeGrantedScopes,
			Prompt:               c.Prompt,
			HostedDomain:         c.HostedDomain,
			HTTPClient:           client,
			Logger:               log,
		})
	case providers.GitHub:
		c := cfg.GitHub
		return providers.NewGitHub(providers.GitHubOptions{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			CallbackURL:  callback,
			Scopes:       scopes[providers.GitHubScope](c.Scopes),
			AllowSignup:  c.AllowSignup,
			UserAgent:    c.UserAgent,
			HTTPClient:   client,
			Logger:       log,
		})
	case providers.Facebook:
		c := cfg.Facebook
		return providers.NewFacebook(providers.FacebookOptions{
			ClientID:           c.ClientID,
			ClientSecret:       c.ClientSecret,
			CallbackURL:        callback,
			Scopes:             scopes[providers.FacebookScope](c.Scopes),
			GraphAPIVersion:    c.GraphAPIVersion,
			ExtraProfileFields: c.ExtraFields,
			HTTPClient:         client,
			Logger:             log,
		})
	case providers.Microsoft:
		c := cfg.Microsoft
		return providers.NewMicrosoft(providers.MicrosoftOptions{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			CallbackURL:  callback,
			Scopes:       scopes[providers.MicrosoftScope](c.Scopes),
			Tenant:       c.Tenant,
			Prompt:       c.Prompt,
			HTTPClient:   client,
			Logger:       log,
		})
	default:
		c := cfg.TikTok
		return providers.NewTikTok(providers.TikTokOptions{
			ClientID:           c.ClientID,
			ClientSecret:       c.ClientSecret,
			CallbackURL:        callback,
			Scopes:             scopes[providers.TikTokScope](c.Scopes),
			ExtraProfileFields: c.ExtraFields,
			HTTPClient:         client,
			Logger:             log,
		})
	}
}

func scopes[S ~string](names []string) []S {
	if len(names) == 0 {
		return nil
	}
	out := make([]S, len(names))
	for i, n := range names {
		out[i] = S(n)
	}
	return out
}
