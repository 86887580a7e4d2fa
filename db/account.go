package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/bxcodec/dbresolver/v2"
	"github.com/google/uuid"

	"github.com/jmartynas/socials/structs"
)

var ErrNotFound = sql.ErrNoRows

var accountColumns = []string{
	"accounts.id",
	"accounts.provider",
	"accounts.provider_id",
	"accounts.email",
	"accounts.display_name",
	"accounts.given_name",
	"accounts.family_name",
	"accounts.photo_url",
	"accounts.created_at",
	"accounts.updated_at",
}

// UpsertAccount inserts the account or refreshes the profile fields of the
// existing (provider, provider_id) row, and returns the stored row. The
// account keeps its original id.
func UpsertAccount(ctx context.Context, dbc dbresolver.DB, a *structs.Account) (*structs.Account, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	insert, args, err := upsertAccountQuery(a).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build account upsert: %w", err)
	}
	selectQuery, selectArgs, err := selectAccountQuery(squirrel.Eq{
		"accounts.provider":    a.Provider,
		"accounts.provider_id": a.ProviderID,
	}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build account select: %w", err)
	}

	// Reads right after the write must not hit a lagging replica.
	tx, err := dbc.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin account upsert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return nil, fmt.Errorf("upsert account: %w", err)
	}
	stored, err := scanAccount(tx.QueryRowContext(ctx, selectQuery, selectArgs...))
	if err != nil {
		return nil, fmt.Errorf("select upserted account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit account upsert: %w", err)
	}
	return stored, nil
}

func SelectAccount(ctx context.Context, dbc dbresolver.DB, provider, providerID string) (*structs.Account, error) {
	return selectOne(ctx, dbc, squirrel.Eq{
		"accounts.provider":    provider,
		"accounts.provider_id": providerID,
	})
}

func SelectAccountByID(ctx context.Context, dbc dbresolver.DB, id uuid.UUID) (*structs.Account, error) {
	return selectOne(ctx, dbc, squirrel.Eq{"accounts.id": id.String()})
}

func selectOne(ctx context.Context, dbc dbresolver.DB, where squirrel.Eq) (*structs.Account, error) {
	query, args, err := selectAccountQuery(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build account select: %w", err)
	}
	return scanAccount(dbc.QueryRowContext(ctx, query, args...))
}

func upsertAccountQuery(a *structs.Account) squirrel.InsertBuilder {
	return squirrel.Insert("accounts").
		Columns("id", "provider", "provider_id", "email", "display_name", "given_name", "family_name", "photo_url").
		Values(a.ID.String(), a.Provider, a.ProviderID, a.Email, a.DisplayName, a.GivenName, a.FamilyName, a.PhotoURL).
		Suffix(`ON DUPLICATE KEY UPDATE
			email = VALUES(email),
			display_name = VALUES(display_name),
			given_name = VALUES(given_name),
			family_name = VALUES(family_name),
			photo_url = VALUES(photo_url),
			updated_at = CURRENT_TIMESTAMP`)
}

func selectAccountQuery(where squirrel.Eq) squirrel.SelectBuilder {
	return squirrel.Select(accountColumns...).
		From("accounts").
		Where(where).
		Limit(1)
}

func scanAccount(row squirrel.RowScanner) (*structs.Account, error) {
	var (
		a  structs.Account
		id string
	)
	if err := row.Scan(
		&id,
		&a.Provider,
		&a.ProviderID,
		&a.Email,
		&a.DisplayName,
		&a.GivenName,
		&a.FamilyName,
		&a.PhotoURL,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse account id %q: %w", id, err)
	}
	a.ID = parsed
	return &a, nil
}
