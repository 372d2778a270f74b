package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/chatgpa/backend/core/token"
)

type tokenRepository struct {
	db *sqlx.DB
}

var _ token.Repository = (*tokenRepository)(nil) // interface compliance check

func NewTokenRepository(db *sqlx.DB) *tokenRepository {
	return &tokenRepository{db: db}
}

// SpendTokens delegates to the use_tokens stored procedure; the spend is
// atomic and a refusal comes back as a row, never as an error.
func (repo tokenRepository) SpendTokens(ctx context.Context, ownerID string, amount int, reason string) (token.SpendResult, error) {
	var res token.SpendResult
	err := repo.db.QueryRowContext(ctx,
		`SELECT allowed, remaining, source FROM use_tokens($1, $2, $3)`, ownerID, amount, reason).
		Scan(&res.Allowed, &res.Remaining, &res.Source)
	if err != nil {
		return token.SpendResult{}, errors.Wrap(err, "calling use_tokens")
	}
	return res, nil
}

func (repo tokenRepository) GetBalance(ctx context.Context, ownerID string) (token.Balance, error) {
	var bal token.Balance
	err := repo.db.QueryRowContext(ctx,
		`SELECT personal, reserve, pool FROM token_balance WHERE owner_id = $1`, ownerID).
		Scan(&bal.Personal, &bal.Reserve, &bal.Pool)
	if err == sql.ErrNoRows {
		return token.Balance{}, nil // no ledger row yet: all buckets empty
	}
	if err != nil {
		return token.Balance{}, errors.Wrap(err, "reading token balance")
	}
	return bal, nil
}

func (repo tokenRepository) RecordUsage(ctx context.Context, ev token.Event) error {
	var meta null.JSON
	if ev.Meta != nil {
		raw, err := json.Marshal(ev.Meta)
		if err != nil {
			return errors.Wrap(err, "marshaling usage meta")
		}
		meta = null.JSONFrom(raw)
	}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO token_usage (id, owner_id, name, meta, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), ev.OwnerID, ev.Name, meta, ev.CreatedAt.UTC())
	return errors.Wrap(err, "recording usage event")
}
