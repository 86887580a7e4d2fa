package errs

import (
	"database/sql"
	"errors"
)

var (
	ErrNotFound          = sql.ErrNoRows
	ErrJWTSecretRequired = errors.New("auth: JWT secret is required")
	ErrDSNNotConfigured  = errors.New("mysql: DSN not configured (set SOCIALS_MYSQL_DSN or SOCIALS_MYSQL_HOST)")
	ErrInvalidSession    = errors.New("auth: invalid or missing session")
	ErrProviderDisabled  = errors.New("auth: unknown or disabled provider")
	ErrStateNotFound     = errors.New("session: oauth state not found or expired")
)
