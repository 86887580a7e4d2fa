package respond

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/oauth2"

	"github.com/jmartynas/socials/internal/errs"
	"github.com/jmartynas/socials/strategy"
)

type APIError struct {
	status int
	Err    string `json:"error"`
}

func New(status int, error string) *APIError {
	return &APIError{
		status: status,
		Err:    error,
	}
}

func (e *APIError) Error() string {
	return e.Err
}

func (e *APIError) Status() int {
	return e.status
}

func (e *APIError) Respond(w http.ResponseWriter, r *http.Request) {
	render.Status(r, e.status)
	render.JSON(w, r, e)
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// FromLogin maps an error of a login flow to what the browser should see.
// Provider and database details stay in the logs.
func FromLogin(err error) *APIError {
	var authErr *strategy.AuthorizationError
	var profileErr *strategy.ProfileError
	var tokenErr *oauth2.RetrieveError
	switch {
	case errors.Is(err, errs.ErrProviderDisabled):
		return NotFound(errs.ErrProviderDisabled.Error())
	case errors.Is(err, strategy.ErrMissingState),
		errors.Is(err, strategy.ErrStateMismatch):
		return BadRequest("invalid oauth state")
	case errors.Is(err, strategy.ErrMissingCode):
		return BadRequest("missing authorization code")
	case errors.As(err, &authErr):
		return Unauthorized("authorization denied by provider")
	case errors.As(err, &tokenErr):
		return BadGateway("token exchange failed")
	case errors.As(err, &profileErr):
		return BadGateway("provider profile unavailable")
	default:
		return InternalServerError("login failed")
	}
}

func Unauthorized(err string) *APIError {
	return New(http.StatusUnauthorized, err)
}

func Database() *APIError {
	return New(http.StatusInternalServerError, "database error")
}

func BadRequest(err string) *APIError {
	return New(http.StatusBadRequest, err)
}

func NotFound(err string) *APIError {
	return New(http.StatusNotFound, err)
}

func BadGateway(err string) *APIError {
	return New(http.StatusBadGateway, err)
}

func InternalServerError(err string) *APIError {
	return New(http.StatusInternalServerError, err)
}
