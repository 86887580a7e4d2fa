package providers

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/jmartynas/socials/strategy"
)

// GraphBaseProfileFields are always requested from Graph-style user endpoints
// (Facebook, TikTok).
var GraphBaseProfileFields = []string{"id", "email", "name", "first_name", "middle_name", "last_name"}

// GraphUser is the part of a Graph-style "me" response that feeds the
// normalized profile. Any extra field requested lands in Profile.Raw.
type GraphUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	Picture    struct {
		Data struct {
			URL          string `json:"url"`
			IsSilhouette bool   `json:"is_silhouette"`
		} `json:"data"`
	} `json:"picture"`
}

func graphFields(extra []string) []string {
	return uniqueFields(GraphBaseProfileFields, extra)
}

func graphProfile(provider Provider, userInfoURL string, fields []string) strategy.ProfileFunc {
	u := userInfoURL + "?" + url.Values{"fields": {strings.Join(fields, ",")}}.Encode()
	return func(ctx context.Context, s *strategy.Strategy, tok *oauth2.Token) (*strategy.Profile, error) {
		var g GraphUser
		raw, err := s.GetObject(ctx, tok, u, nil, &g)
		if err != nil {
			return nil, err
		}
		return &strategy.Profile{
			Provider:    string(provider),
			ID:          g.ID,
			DisplayName: g.Name,
			Name: &strategy.Name{
				GivenName:  g.FirstName,
				MiddleName: g.MiddleName,
				FamilyName: g.LastName,
			},
			Emails: strategy.Values(g.Email),
			Photos: strategy.Values(g.Picture.Data.URL),
			Raw:    raw,
		}, nil
	}
}
