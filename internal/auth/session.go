package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jmartynas/socials/internal/errs"
)

const (
	CookieName       = "session"
	SessionMaxAgeSec = 7 * 24 * 3600
)

type Claims struct {
	jwt.RegisteredClaims
	AccountID   uuid.UUID `json:"account_id"`
	Provider    string    `json:"provider"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
}

// Identity is what a session remembers about the signed-in account.
type Identity struct {
	AccountID   uuid.UUID
	Provider    string
	ProviderID  string
	Email       string
	DisplayName string
}

func SetSession(w http.ResponseWriter, secret string, id Identity, secure bool) error {
	if secret == "" {
		return errs.ErrJWTSecretRequired
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ProviderID,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(SessionMaxAgeSec) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		AccountID:   id.AccountID,
		Provider:    id.Provider,
		Email:       id.Email,
		DisplayName: id.DisplayName,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   SessionMaxAgeSec,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func GetSession(r *http.Request, secret string) (*Claims, error) {
	if secret == "" {
		return nil, errs.ErrJWTSecretRequired
	}
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, errs.ErrInvalidSession
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(c.Value, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, errs.ErrInvalidSession
	}
	return &claims, nil
}

func ClearSession(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
