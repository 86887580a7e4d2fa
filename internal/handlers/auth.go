package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/sirupsen/logrus"

	"github.com/jmartynas/socials/db"
	"github.com/jmartynas/socials/internal/auth"
	"github.com/jmartynas/socials/internal/errs"
	"github.com/jmartynas/socials/internal/middleware"
	"github.com/jmartynas/socials/respond"
	"github.com/jmartynas/socials/strategy"
	"github.com/jmartynas/socials/structs"
)

type AuthHandler struct {
	// Authenticators holds one entry per enabled provider, keyed by name.
	Authenticators map[string]*strategy.Authenticator[*structs.Account]
	JWTSecret      string
	SuccessURL     string
	DB             dbresolver.DB
	Log            logrus.FieldLogger
	Secure         bool
}

func (h *AuthHandler) authenticator(r *http.Request) (*strategy.Authenticator[*structs.Account], string, error) {
	provider := strings.ToLower(strings.TrimSpace(r.PathValue("provider")))
	a, ok := h.Authenticators[provider]
	if !ok {
		return nil, provider, errs.ErrProviderDisabled
	}
	return a, provider, nil
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	a, provider, err := h.authenticator(r)
	if err != nil {
		respond.FromLogin(err).Respond(w, r)
		return
	}
	if err := a.Redirect(w, r); err != nil {
		h.Log.WithError(err).WithField("provider", provider).Error("login redirect")
		respond.InternalServerError("login failed").Respond(w, r)
	}
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	a, provider, err := h.authenticator(r)
	if err != nil {
		respond.FromLogin(err).Respond(w, r)
		return
	}
	log := h.Log.WithField("provider", provider)

	account, err := a.Callback(w, r)
	if err != nil {
		var authErr *strategy.AuthorizationError
		if errors.As(err, &authErr) {
			log.WithField("code", authErr.Code).Info("authorization refused")
		} else {
			log.WithError(err).Warn("login failed")
		}
		respond.FromLogin(err).Respond(w, r)
		return
	}

	if err := auth.SetSession(w, h.JWTSecret, auth.Identity{
		AccountID:   account.ID,
		Provider:    account.Provider,
		ProviderID:  account.ProviderID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
	}, h.Secure); err != nil {
		log.WithError(err).Error("session")
		respond.InternalServerError("session failed").Respond(w, r)
		return
	}
	http.Redirect(w, r, h.successURL(), http.StatusFound)
}

// Me returns the signed-in account. It must run behind
// middleware.RequireSession.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSessionClaims(r.Context())
	if claims == nil {
		respond.Unauthorized("unauthorized").Respond(w, r)
		return
	}
	if h.DB == nil {
		respond.JSON(w, r, http.StatusOK, &structs.Account{
			ID:          claims.AccountID,
			Provider:    claims.Provider,
			ProviderID:  claims.Subject,
			Email:       claims.Email,
			DisplayName: claims.DisplayName,
		})
		return
	}

	account, err := db.SelectAccountByID(r.Context(), h.DB, claims.AccountID)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		auth.ClearSession(w, h.Secure)
		respond.Unauthorized("unauthorized").Respond(w, r)
	case err != nil:
		h.Log.WithError(err).WithField("account", claims.AccountID).Error("select account")
		respond.Database().Respond(w, r)
	default:
		respond.JSON(w, r, http.StatusOK, account)
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w, h.Secure)
	http.Redirect(w, r, h.successURL(), http.StatusFound)
}

func (h *AuthHandler) successURL() string {
	if h.SuccessURL == "" {
		return "/"
	}
	return h.SuccessURL
}
