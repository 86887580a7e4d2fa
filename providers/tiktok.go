package providers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jmartynas/socials/strategy"
)

const (
	TikTokAuthorizationURL = "https://open-api.tiktok.com/platform/oauth/connect/"
	TikTokTokenURL         = "https://open-api.tiktok.com/oauth/access_token/"
	TikTokUserInfoURL      = "https://graph.tiktok.com/me"
	TikTokScopeSeparator   = ","
)

// TikTokScope is a permission accepted by the TikTok login dialog.
type TikTokScope string

const (
	TikTokScopeAdsManagement      TikTokScope = "ads_management"
	TikTokScopeAdsRead            TikTokScope = "ads_read"
	TikTokScopeAttributionRead    TikTokScope = "attribution_read"
	TikTokScopeCatalogManagement  TikTokScope = "catalog_management"
	TikTokScopeBusinessManagement TikTokScope = "business_management"
	TikTokScopeEmail              TikTokScope = "email"
	TikTokScopeGamingUserLocale   TikTokScope = "gaming_user_locale"
	TikTokScopeLeadsRetrieval     TikTokScope = "leads_retrieval"
	TikTokScopePagesShowList      TikTokScope = "pages_show_list"
	TikTokScopePublicProfile      TikTokScope = "public_profile"
	TikTokScopePublishVideo       TikTokScope = "publish_video"
	TikTokScopeReadInsights       TikTokScope = "read_insights"
	TikTokScopeResearchAPIs       TikTokScope = "research_apis"
	TikTokScopeUserAgeRange       TikTokScope = "user_age_range"
	TikTokScopeUserBirthday       TikTokScope = "user_birthday"
	TikTokScopeUserFriends        TikTokScope = "user_friends"
	TikTokScopeUserGender         TikTokScope = "user_gender"
	TikTokScopeUserHometown       TikTokScope = "user_hometown"
	TikTokScopeUserLikes          TikTokScope = "user_likes"
	TikTokScopeUserLink           TikTokScope = "user_link"
	TikTokScopeUserLocation       TikTokScope = "user_location"
	TikTokScopeMessengerContact   TikTokScope = "user_messenger_contact"
	TikTokScopeUserPhotos         TikTokScope = "user_photos"
	TikTokScopeUserPosts          TikTokScope = "user_posts"
	TikTokScopeUserVideos         TikTokScope = "user_videos"
)

var TikTokDefaultScopes = []TikTokScope{TikTokScopePublicProfile, TikTokScopeEmail}

type TikTokOptions struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// Scopes defaults to TikTokDefaultScopes.
	Scopes []TikTokScope
	// ExtraProfileFields are requested in addition to GraphBaseProfileFields
	// and show up in Profile.Raw.
	ExtraProfileFields []string

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

func NewTikTok(opts TikTokOptions) *strategy.Strategy {
	return strategy.New(string(TikTok), strategy.Options{
		ClientID:         opts.ClientID,
		ClientSecret:     opts.ClientSecret,
		CallbackURL:      opts.CallbackURL,
		AuthorizationURL: TikTokAuthorizationURL,
		TokenURL:         TikTokTokenURL,
		Scopes:           scopesOrDefault(opts.Scopes, TikTokDefaultScopes),
		ScopeSeparator:   TikTokScopeSeparator,
		HTTPClient:       opts.HTTPClient,
		Logger:           opts.Logger,
	}, graphProfile(TikTok, TikTokUserInfoURL, graphFields(opts.ExtraProfileFields)))
}
