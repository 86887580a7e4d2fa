package providers

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/jmartynas/socials/strategy"
)

const (
	DiscordAuthorizationURL = "https://discord.com/api/oauth2/authorize"
	DiscordTokenURL         = "https://discord.com/api/oauth2/token"
	DiscordUserInfoURL      = "https://discord.com/api/users/@me"
	DiscordCDNURL           = "https://cdn.discordapp.com"
	DiscordScopeSeparator   = " "
)

// DiscordScope is a Discord OAuth2 scope.
//
// See https://discord.com/developers/docs/topics/oauth2#shared-resources-oauth2-scopes
type DiscordScope string

const (
	DiscordScopeActivitiesRead     DiscordScope = "activities.read"
	DiscordScopeActivitiesWrite    DiscordScope = "activities.write"
	DiscordScopeApplicationsBuilds DiscordScope = "applications.builds.read"
	DiscordScopeApplicationsStore  DiscordScope = "applications.store.update"
	DiscordScopeBot                DiscordScope = "bot"
	DiscordScopeConnections        DiscordScope = "connections"
	DiscordScopeEmail              DiscordScope = "email"
	DiscordScopeGDMJoin            DiscordScope = "gdm.join"
	DiscordScopeGuilds             DiscordScope = "guilds"
	DiscordScopeGuildsJoin         DiscordScope = "guilds.join"
	DiscordScopeGuildsMembersRead  DiscordScope = "guilds.members.read"
	DiscordScopeIdentify           DiscordScope = "identify"
	DiscordScopeMessagesRead       DiscordScope = "messages.read"
	DiscordScopeRoleConnections    DiscordScope = "role_connections.write"
	DiscordScopeRPC                DiscordScope = "rpc"
	DiscordScopeWebhookIncoming    DiscordScope = "webhook.incoming"
)

var DiscordDefaultScopes = []DiscordScope{DiscordScopeIdentify, DiscordScopeEmail}

type DiscordOptions struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// Scopes defaults to DiscordDefaultScopes.
	Scopes []DiscordScope
	// Prompt is "none" or "consent".
	Prompt string

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// DiscordUser is the response of the current-user endpoint.
type DiscordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	Email         string `json:"email"`
	Verified      bool   `json:"verified"`
	Locale        string `json:"locale"`
	MFAEnabled    bool   `json:"mfa_enabled"`
}

func NewDiscord(opts DiscordOptions) *strategy.Strategy {
	return strategy.New(string(Discord), strategy.Options{
		ClientID:         opts.ClientID,
		ClientSecret:     opts.ClientSecret,
		CallbackURL:      opts.CallbackURL,
		AuthorizationURL: DiscordAuthorizationURL,
		TokenURL:         DiscordTokenURL,
		Scopes:           scopesOrDefault(opts.Scopes, DiscordDefaultScopes),
		ScopeSeparator:   DiscordScopeSeparator,
		AuthParams:       map[string]string{"prompt": opts.Prompt},
		HTTPClient:       opts.HTTPClient,
		Logger:           opts.Logger,
	}, discordProfile)
}

func discordProfile(ctx context.Context, s *strategy.Strategy, tok *oauth2.Token) (*strategy.Profile, error) {
	var u DiscordUser
	raw, err := s.GetObject(ctx, tok, DiscordUserInfoURL, nil, &u)
	if err != nil {
		return nil, err
	}
	name := u.GlobalName
	if name == "" {
		name = u.Username
	}
	return &strategy.Profile{
		Provider:    string(Discord),
		ID:          u.ID,
		DisplayName: name,
		Emails:      strategy.Values(u.Email),
		Photos:      strategy.Values(DiscordAvatarURL(u.ID, u.Avatar)),
		Raw:         raw,
	}, nil
}

// DiscordAvatarURL returns the CDN URL of a user's avatar, or "" when the user
// has none. Animated avatar hashes start with "a_".
func DiscordAvatarURL(userID, avatar string) string {
	if userID == "" || avatar == "" {
		return ""
	}
	ext := "png"
	if strings.HasPrefix(avatar, "a_") {
		ext = "gif"
	}
	return DiscordCDNURL + "/avatars/" + userID + "/" + avatar + "." + ext
}
