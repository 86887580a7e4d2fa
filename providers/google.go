package providers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jmartynas/socials/strategy"
)

const (
	GoogleUserInfoURL    = "https://www.googleapis.com/oauth2/v3/userinfo"
	GoogleScopeSeparator = " "
)

// GoogleScope is a Google OAuth2 scope.
//
// See https://developers.google.com/identity/protocols/oauth2/scopes
type GoogleScope string

const (
	GoogleScopeOpenID  GoogleScope = "openid"
	GoogleScopeEmail   GoogleScope = "https://www.googleapis.com/auth/userinfo.email"
	GoogleScopeProfile GoogleScope = "https://www.googleapis.com/auth/userinfo.profile"
)

var GoogleDefaultScopes = []GoogleScope{GoogleScopeOpenID, GoogleScopeProfile, GoogleScopeEmail}

type GoogleOptions struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// Scopes defaults to GoogleDefaultScopes.
	Scopes []GoogleScope
	// AccessType is "online" or "offline"; offline yields a refresh token.
	AccessType           string
	IncludeGrantedScopes bool
	// Prompt is a space separated list of "none", "consent", "select_account".
	Prompt string
	// HostedDomain restricts the account chooser to one Workspace domain.
	HostedDomain string
	LoginHint    string

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// GoogleUser is the OpenID Connect userinfo response.
type GoogleUser struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Locale        string `json:"locale"`
	HostedDomain  string `json:"hd"`
}

func NewGoogle(opts GoogleOptions) *strategy.Strategy {
	params := map[string]string{
		"access_type": opts.AccessType,
		"prompt":      opts.Prompt,
		"hd":          opts.HostedDomain,
		"login_hint":  opts.LoginHint,
	}
	if opts.IncludeGrantedScopes {
		params["include_granted_scopes"] = strconv.FormatBool(true)
	}
	return strategy.New(string(Google), strategy.Options{
		ClientID:         opts.ClientID,
		ClientSecret:     opts.ClientSecret,
		CallbackURL:      opts.CallbackURL,
		AuthorizationURL: google.Endpoint.AuthURL,
		TokenURL:         google.Endpoint.TokenURL,
		AuthStyle:        google.Endpoint.AuthStyle,
		Scopes:           scopesOrDefault(opts.Scopes, GoogleDefaultScopes),
		ScopeSeparator:   GoogleScopeSeparator,
		AuthParams:       params,
		HTTPClient:       opts.HTTPClient,
		Logger:           opts.Logger,
	}, googleProfile)
}

func googleProfile(ctx context.Context, s *strategy.Strategy, tok *oauth2.Token) (*strategy.Profile, error) {
	var u GoogleUser
	raw, err := s.GetObject(ctx, tok, GoogleUserInfoURL, nil, &u)
	if err != nil {
		return nil, err
	}
	return &strategy.Profile{
		Provider:    string(Google),
		ID:          u.Sub,
		DisplayName: u.Name,
		Name: &strategy.Name{
			FamilyName: u.FamilyName,
			GivenName:  u.GivenName,
		},
		Emails: strategy.Values(u.Email),
		Photos: strategy.Values(u.Picture),
		Raw:    raw,
	}, nil
}
