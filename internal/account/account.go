package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jmartynas/socials/db"
	"github.com/jmartynas/socials/strategy"
	"github.com/jmartynas/socials/structs"
)

var ErrNoIdentity = errors.New("account: profile has no provider id")

// namespace scopes the ids derived for accounts that are never stored.
var namespace = uuid.MustParse("5f0c3f5e-8a8f-4f47-9d3e-0c6d2b9e7a11")

// FromProfile copies the normalized provider profile into an account.
func FromProfile(p *strategy.Profile) *structs.Account {
	a := &structs.Account{
		Provider:    p.Provider,
		ProviderID:  p.ID,
		Email:       p.Email(),
		DisplayName: p.DisplayName,
		PhotoURL:    p.Photo(),
	}
	if p.Name != nil {
		a.GivenName = p.Name.GivenName
		a.FamilyName = p.Name.FamilyName
	}
	return a
}

// StableID is the id an account gets when there is no database to hold it.
func StableID(provider, providerID string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(provider+":"+providerID))
}

// Verifier persists the account behind every successful login. Without a
// database the account is only derived from the profile.
func Verifier(dbc dbresolver.DB, log logrus.FieldLogger) strategy.VerifyFunc[*structs.Account] {
	log = log.WithField("thread", "account")
	return func(ctx context.Context, params strategy.VerifyParams) (*structs.Account, error) {
		if params.Profile == nil || params.Profile.ID == "" {
			return nil, ErrNoIdentity
		}
		a := FromProfile(params.Profile)
		if dbc == nil {
			a.ID = StableID(a.Provider, a.ProviderID)
			return a, nil
		}

		stored, err := db.UpsertAccount(ctx, dbc, a)
		if err != nil {
			return nil, fmt.Errorf("store account: %w", err)
		}
		log.WithField("provider", stored.Provider).
			WithField("account", stored.ID).
			Debug("account upserted")
		return stored, nil
	}
}
