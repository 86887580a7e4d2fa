// Package strategy is the generic OAuth2 login strategy the provider adapters
// configure. Protocol work (code exchange, refresh, token transport) is left to
// golang.org/x/oauth2; a Strategy adds scope formatting, fixed authorization
// parameters and the provider's profile normalization on top of it.
package strategy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	DefaultScopeSeparator = " "
	defaultHTTPTimeout    = 10 * time.Second
	maxBodySize           = 1 << 20
)

// ProfileFunc fetches the user-info document(s) of a provider with the
// access token and normalizes them.
type ProfileFunc func(ctx context.Context, s *Strategy, token *oauth2.Token) (*Profile, error)

type Options struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	AuthorizationURL string
	TokenURL         string
	AuthStyle        oauth2.AuthStyle

	Scopes         []string
	ScopeSeparator string
	// AuthParams are added to every authorization URL.
	AuthParams map[string]string

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

type Strategy struct {
	name       string
	config     *oauth2.Config
	scopes     []string
	separator  string
	params     map[string]string
	profile    ProfileFunc
	httpClient *http.Client
	log        logrus.FieldLogger
}

func New(name string, opts Options, profile ProfileFunc) *Strategy {
	sep := opts.ScopeSeparator
	if sep == "" {
		sep = DefaultScopeSeparator
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	params := make(map[string]string, len(opts.AuthParams))
	for k, v := range opts.AuthParams {
		if v != "" {
			params[k] = v
		}
	}

	return &Strategy{
		name: name,
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.CallbackURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthorizationURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: opts.AuthStyle,
			},
		},
		scopes:     append([]string(nil), opts.Scopes...),
		separator:  sep,
		params:     params,
		profile:    profile,
		httpClient: client,
		log:        log.WithField("provider", name),
	}
}

func (s *Strategy) Name() string { return s.name }

func (s *Strategy) Scopes() []string { return append([]string(nil), s.scopes...) }

func (s *Strategy) ScopeSeparator() string { return s.separator }

// Config returns a copy of the underlying oauth2 configuration.
func (s *Strategy) Config() oauth2.Config { return *s.config }

func (s *Strategy) HTTPClient() *http.Client { return s.httpClient }

func (s *Strategy) Logger() logrus.FieldLogger { return s.log }

// AuthCodeURL returns the provider's authorization URL for state. Scopes are
// joined with the provider's separator rather than the space x/oauth2 uses.
func (s *Strategy) AuthCodeURL(state string, extra ...oauth2.AuthCodeOption) string {
	opts := make([]oauth2.AuthCodeOption, 0, len(s.params)+len(extra)+1)
	if len(s.scopes) > 0 {
		opts = append(opts, oauth2.SetAuthURLParam("scope", strings.Join(s.scopes, s.separator)))
	}
	keys := make([]string, 0, len(s.params))
	for k := range s.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, oauth2.SetAuthURLParam(k, s.params[k]))
	}
	opts = append(opts, extra...)
	return s.config.AuthCodeURL(state, opts...)
}

func (s *Strategy) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, ErrMissingCode
	}
	tok, err := s.config.Exchange(s.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%s: exchange code: %w", s.name, err)
	}
	return tok, nil
}

// Refresh trades a refresh token for a new access token.
func (s *Strategy) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, ErrMissingToken
	}
	ts := s.config.TokenSource(s.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("%s: refresh token: %w", s.name, err)
	}
	return tok, nil
}

func (s *Strategy) UserProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	if token == nil || token.AccessToken == "" {
		return nil, ErrMissingToken
	}
	if s.profile == nil {
		return &Profile{Provider: s.name}, nil
	}
	p, err := s.profile(ctx, s, token)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%s: %w", s.name, ErrMissingProfile)
	}
	if p.Provider == "" {
		p.Provider = s.name
	}
	s.log.WithField("id", p.ID).Debug("user profile loaded")
	return p, nil
}

// GetJSON performs an authorized GET and decodes the response into dst.
func (s *Strategy) GetJSON(ctx context.Context, token *oauth2.Token, rawURL string, header http.Header, dst any) error {
	body, err := s.get(ctx, token, rawURL, header)
	if err != nil {
		return err
	}
	if err := render.DecodeJSON(bytes.NewReader(body), dst); err != nil {
		return fmt.Errorf("%s: decode %s: %w", s.name, rawURL, err)
	}
	return nil
}

// GetObject is GetJSON for endpoints answering with a JSON object; it also
// returns the raw object for Profile.Raw.
func (s *Strategy) GetObject(ctx context.Context, token *oauth2.Token, rawURL string, header http.Header, dst any) (map[string]any, error) {
	body, err := s.get(ctx, token, rawURL, header)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]any)
	if err := render.DecodeJSON(bytes.NewReader(body), &raw); err != nil {
		return nil, fmt.Errorf("%s: decode %s: %w", s.name, rawURL, err)
	}
	if dst != nil {
		if err := render.DecodeJSON(bytes.NewReader(body), dst); err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", s.name, rawURL, err)
		}
	}
	return raw, nil
}

func (s *Strategy) get(ctx context.Context, token *oauth2.Token, rawURL string, header http.Header) ([]byte, error) {
	if token == nil || token.AccessToken == "" {
		return nil, ErrMissingToken
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create user info request: %w", s.name, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	token.SetAuthHeader(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: user info request: %w", s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: read user info response: %w", s.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProfileError{
			Provider:   s.name,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}

func (s *Strategy) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}
