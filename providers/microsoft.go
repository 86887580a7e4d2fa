package providers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/jmartynas/socials/strategy"
)

const (
	MicrosoftDefaultTenant  = "common"
	MicrosoftUserInfoURL    = "https://graph.microsoft.com/oidc/userinfo"
	MicrosoftScopeSeparator = " "
)

// MicrosoftScope is a Microsoft identity platform scope.
//
// See https://learn.microsoft.com/en-us/entra/identity-platform/scopes-oidc
type MicrosoftScope string

const (
	MicrosoftScopeOpenID        MicrosoftScope = "openid"
	MicrosoftScopeProfile       MicrosoftScope = "profile"
	MicrosoftScopeEmail         MicrosoftScope = "email"
	MicrosoftScopeOfflineAccess MicrosoftScope = "offline_access"
	MicrosoftScopeUserRead      MicrosoftScope = "User.Read"
)

var MicrosoftDefaultScopes = []MicrosoftScope{MicrosoftScopeOpenID, MicrosoftScopeProfile, MicrosoftScopeEmail}

type MicrosoftOptions struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// Scopes defaults to MicrosoftDefaultScopes.
	Scopes []MicrosoftScope
	// Tenant is "common", "organizations", "consumers" or a tenant id.
	// Defaults to MicrosoftDefaultTenant.
	Tenant string
	// Prompt is "login", "none", "consent" or "select_account".
	Prompt     string
	DomainHint string

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// MicrosoftUser is the OpenID Connect userinfo response of Microsoft Graph.
type MicrosoftUser struct {
	Sub        string `json:"sub"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Picture    string `json:"picture"`
}

func NewMicrosoft(opts MicrosoftOptions) *strategy.Strategy {
	tenant := opts.Tenant
	if tenant == "" {
		tenant = MicrosoftDefaultTenant
	}
	endpoint := microsoft.AzureADEndpoint(tenant)
	return strategy.New(string(Microsoft), strategy.Options{
		ClientID:         opts.ClientID,
		ClientSecret:     opts.ClientSecret,
		CallbackURL:      opts.CallbackURL,
		AuthorizationURL: endpoint.AuthURL,
		TokenURL:         endpoint.TokenURL,
		AuthStyle:        endpoint.AuthStyle,
		Scopes:           scopesOrDefault(opts.Scopes, MicrosoftDefaultScopes),
		ScopeSeparator:   MicrosoftScopeSeparator,
		AuthParams: map[string]string{
			"prompt":      opts.Prompt,
			"domain_hint": opts.DomainHint,
		},
		HTTPClient: opts.HTTPClient,
		Logger:     opts.Logger,
	}, microsoftProfile)
}

func microsoftProfile(ctx context.Context, s *strategy.Strategy, tok *oauth2.Token) (*strategy.Profile, error) {
	var u MicrosoftUser
	raw, err := s.GetObject(ctx, tok, MicrosoftUserInfoURL, nil, &u)
	if err != nil {
		return nil, err
	}
	return &strategy.Profile{
		Provider:    string(Microsoft),
		ID:          u.Sub,
		DisplayName: u.Name,
		Name: &strategy.Name{
			FamilyName: u.FamilyName,
			GivenName:  u.GivenName,
		},
		Emails: strategy.Values(u.Email),
		Raw:    raw,
	}, nil
}
