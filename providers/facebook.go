package providers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jmartynas/socials/strategy"
)

const (
	FacebookDefaultGraphVersion = "v18.0"
	FacebookScopeSeparator      = ","
)

// FacebookScope is a Facebook Login permission.
//
// See https://developers.facebook.com/docs/permissions/reference
type FacebookScope string

const (
	FacebookScopeAdsManagement      FacebookScope = "ads_management"
	FacebookScopeAdsRead            FacebookScope = "ads_read"
	FacebookScopeBusinessManagement FacebookScope = "business_management"
	FacebookScopeEmail              FacebookScope = "email"
	FacebookScopeGroupsAccess       FacebookScope = "groups_access_member_info"
	FacebookScopeInstagramBasic     FacebookScope = "instagram_basic"
	FacebookScopePagesShowList      FacebookScope = "pages_show_list"
	FacebookScopePagesReadEngage    FacebookScope = "pages_read_engagement"
	FacebookScopePublicProfile      FacebookScope = "public_profile"
	FacebookScopeUserAgeRange       FacebookScope = "user_age_range"
	FacebookScopeUserBirthday       FacebookScope = "user_birthday"
	FacebookScopeUserFriends        FacebookScope = "user_friends"
	FacebookScopeUserGender         FacebookScope = "user_gender"
	FacebookScopeUserHometown       FacebookScope = "user_hometown"
	FacebookScopeUserLikes          FacebookScope = "user_likes"
	FacebookScopeUserLink           FacebookScope = "user_link"
	FacebookScopeUserLocation       FacebookScope = "user_location"
	FacebookScopeUserPhotos         FacebookScope = "user_photos"
	FacebookScopeUserPosts          FacebookScope = "user_posts"
	FacebookScopeUserVideos         FacebookScope = "user_videos"
)

var FacebookDefaultScopes = []FacebookScope{FacebookScopePublicProfile, FacebookScopeEmail}

type FacebookOptions struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// Scopes defaults to FacebookDefaultScopes.
	Scopes []FacebookScope
	// GraphAPIVersion defaults to FacebookDefaultGraphVersion.
	GraphAPIVersion string
	// ExtraProfileFields are requested in addition to GraphBaseProfileFields
	// and show up in Profile.Raw. Some need extra scopes. Requesting
	// "picture" fills Profile.Photos.
	ExtraProfileFields []string

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

func FacebookAuthorizationURL(version string) string {
	return "https://www.facebook.com/" + version + "/dialog/oauth"
}

func FacebookTokenURL(version string) string {
	return "https://graph.facebook.com/" + version + "/oauth/access_token"
}

func FacebookUserInfoURL(version string) string {
	return "https://graph.facebook.com/" + version + "/me"
}

func NewFacebook(opts FacebookOptions) *strategy.Strategy {
	version := opts.GraphAPIVersion
	if version == "" {
		version = FacebookDefaultGraphVersion
	}
	return strategy.New(string(Facebook), strategy.Options{
		ClientID:         opts.ClientID,
		ClientSecret:     opts.ClientSecret,
		CallbackURL:      opts.CallbackURL,
		AuthorizationURL: FacebookAuthorizationURL(version),
		TokenURL:         FacebookTokenURL(version),
		Scopes:           scopesOrDefault(opts.Scopes, FacebookDefaultScopes),
		ScopeSeparator:   FacebookScopeSeparator,
		HTTPClient:       opts.HTTPClient,
		Logger:           opts.Logger,
	}, graphProfile(Facebook, FacebookUserInfoURL(version), graphFields(opts.ExtraProfileFields)))
}
