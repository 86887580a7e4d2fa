package providers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/jmartynas/socials/strategy"
)

const (
	GitHubUserInfoURL     = "https://api.github.com/user"
	GitHubUserEmailsURL   = "https://api.github.com/user/emails"
	GitHubScopeSeparator  = " "
	GitHubDefaultAgent    = "socials"
	gitHubAcceptMediaType = "application/vnd.github+json"
)

// GitHubScope is a GitHub OAuth app scope.
//
// See https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/scopes-for-oauth-apps
type GitHubScope string

const (
	GitHubScopeUser           GitHubScope = "user"
	GitHubScopeReadUser       GitHubScope = "read:user"
	GitHubScopeUserEmail      GitHubScope = "user:email"
	GitHubScopeUserFollow     GitHubScope = "user:follow"
	GitHubScopeRepo           GitHubScope = "repo"
	GitHubScopePublicRepo     GitHubScope = "public_repo"
	GitHubScopeRepoStatus     GitHubScope = "repo:status"
	GitHubScopeRepoDeployment GitHubScope = "repo_deployment"
	GitHubScopeDeleteRepo     GitHubScope = "delete_repo"
	GitHubScopeNotifications  GitHubScope = "notifications"
	GitHubScopeGist           GitHubScope = "gist"
	GitHubScopeReadOrg        GitHubScope = "read:org"
	GitHubScopeWriteOrg       GitHubScope = "write:org"
	GitHubScopeAdminOrg       GitHubScope = "admin:org"
	GitHubScopeReadPublicKey  GitHubScope = "read:public_key"
	GitHubScopeWorkflow       GitHubScope = "workflow"
)

var GitHubDefaultScopes = []GitHubScope{GitHubScopeUserEmail}

type GitHubOptions struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// Scopes defaults to GitHubDefaultScopes.
	Scopes []GitHubScope
	// AllowSignup controls whether unauthenticated users are offered to sign
	// up during the flow. Nil leaves GitHub's default.
	AllowSignup *bool
	// UserAgent is required by the GitHub API; defaults to GitHubDefaultAgent.
	UserAgent string

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

type GitHubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	Company   string `json:"company"`
	Blog      string `json:"blog"`
	Location  string `json:"location"`
	Bio       string `json:"bio"`
}

type GitHubEmail struct {
	Email      string `json:"email"`
	Primary    bool   `json:"primary"`
	Verified   bool   `json:"verified"`
	Visibility string `json:"visibility"`
}

func NewGitHub(opts GitHubOptions) *strategy.Strategy {
	params := map[string]string{}
	if opts.AllowSignup != nil {
		params["allow_signup"] = strconv.FormatBool(*opts.AllowSignup)
	}
	agent := opts.UserAgent
	if agent == "" {
		agent = GitHubDefaultAgent
	}
	return strategy.New(string(GitHub), strategy.Options{
		ClientID:         opts.ClientID,
		ClientSecret:     opts.ClientSecret,
		CallbackURL:      opts.CallbackURL,
		AuthorizationURL: github.Endpoint.AuthURL,
		TokenURL:         github.Endpoint.TokenURL,
		AuthStyle:        github.Endpoint.AuthStyle,
		Scopes:           scopesOrDefault(opts.Scopes, GitHubDefaultScopes),
		ScopeSeparator:   GitHubScopeSeparator,
		AuthParams:       params,
		HTTPClient:       opts.HTTPClient,
		Logger:           opts.Logger,
	}, gitHubProfile(agent))
}

func gitHubProfile(agent string) strategy.ProfileFunc {
	return func(ctx context.Context, s *strategy.Strategy, tok *oauth2.Token) (*strategy.Profile, error) {
		header := http.Header{}
		header.Set("Accept", gitHubAcceptMediaType)
		header.Set("User-Agent", agent)

		var u GitHubUser
		raw, err := s.GetObject(ctx, tok, GitHubUserInfoURL, header, &u)
		if err != nil {
			return nil, err
		}

		emails, err := gitHubEmails(ctx, s, tok, header)
		if err != nil {
			// Without the user:email scope the emails endpoint is refused;
			// the public email is all there is.
			var perr *strategy.ProfileError
			if !errors.As(err, &perr) || (perr.StatusCode != http.StatusForbidden && perr.StatusCode != http.StatusNotFound) {
				return nil, err
			}
			s.Logger().WithError(err).Debug("github emails unavailable")
			emails = strategy.Values(u.Email)
		}

		profile := &strategy.Profile{
			Provider:    string(GitHub),
			ID:          strconv.FormatInt(u.ID, 10),
			DisplayName: u.Login,
			Emails:      emails,
			Photos:      strategy.Values(u.AvatarURL),
			Raw:         raw,
		}
		if u.Name != "" {
			profile.Name = &strategy.Name{GivenName: u.Name}
		}
		return profile, nil
	}
}

// gitHubEmails lists the user's emails with the primary address first.
func gitHubEmails(ctx context.Context, s *strategy.Strategy, tok *oauth2.Token, header http.Header) ([]strategy.Value, error) {
	var list []GitHubEmail
	if err := s.GetJSON(ctx, tok, GitHubUserEmailsURL, header, &list); err != nil {
		return nil, err
	}
	var primary, rest []strategy.Value
	for _, e := range list {
		if e.Email == "" {
			continue
		}
		if e.Primary {
			primary = append(primary, strategy.Value{Value: e.Email, Type: "primary"})
			continue
		}
		rest = append(rest, strategy.Value{Value: e.Email})
	}
	return append(primary, rest...), nil
}
