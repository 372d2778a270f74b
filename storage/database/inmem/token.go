package inmemdb

import (
	"context"

	"github.com/chatgpa/backend/core/token"
)

type tokenRepository struct {
	db *tokenTable
}

var _ token.Repository = (*tokenRepository)(nil)

func NewTokenRepository(db *DB) *tokenRepository {
	return &tokenRepository{db: db.token}
}

// SetBalance seeds a user's ledger; test helper.
func (r *tokenRepository) SetBalance(ownerID string, bal token.Balance) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()
	r.db.balances[ownerID] = &bal
}

// SpendTokens mimics the use_tokens procedure: personal, then reserve, then
// pool; a refusal is a structured result, never a negative balance.
func (r *tokenRepository) SpendTokens(_ context.Context, ownerID string, amount int, _ string) (token.SpendResult, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	bal, ok := r.db.balances[ownerID]
	if !ok {
		return token.SpendResult{Allowed: false, Remaining: 0}, nil
	}

	switch {
	case bal.Personal >= amount:
		bal.Personal -= amount
		return token.SpendResult{Allowed: true, Remaining: bal.Total(), Source: "personal"}, nil
	case bal.Reserve >= amount:
		bal.Reserve -= amount
		return token.SpendResult{Allowed: true, Remaining: bal.Total(), Source: "reserve"}, nil
	case bal.Pool >= amount:
		bal.Pool -= amount
		return token.SpendResult{Allowed: true, Remaining: bal.Total(), Source: "pool"}, nil
	default:
		return token.SpendResult{Allowed: false, Remaining: bal.Total()}, nil
	}
}

func (r *tokenRepository) GetBalance(_ context.Context, ownerID string) (token.Balance, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if bal, ok := r.db.balances[ownerID]; ok {
		return *bal, nil
	}
	return token.Balance{}, nil
}

func (r *tokenRepository) RecordUsage(_ context.Context, ev token.Event) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()
	r.db.usage = append(r.db.usage, ev)
	return nil
}

// UsageEvents returns recorded events; test helper.
func (r *tokenRepository) UsageEvents() []token.Event {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()
	out := make([]token.Event, len(r.db.usage))
	copy(out, r.db.usage)
	return out
}
