package token

import (
	"context"
	"time"
)

type (
	Repository interface {
		// SpendTokens calls the atomic use_tokens database procedure: it
		// decrements personal, then reserve, then pool, and returns a
		// structured refusal instead of ever going negative.
		SpendTokens(ctx context.Context, ownerID string, amount int, reason string) (SpendResult, error)
		GetBalance(ctx context.Context, ownerID string) (Balance, error)
		RecordUsage(ctx context.Context, ev Event) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Spend charges the user's ledger. A refusal is returned as ErrInsufficient
// alongside the structured result so handlers can report the remaining balance.
func (svc *Service) Spend(ctx context.Context, ownerID string, amount int, reason string) (SpendResult, error) {
	res, err := svc.repo.SpendTokens(ctx, ownerID, amount, reason)
	if err != nil {
		return SpendResult{}, err
	}
	if !res.Allowed {
		return res, ErrInsufficient
	}
	return res, nil
}

func (svc *Service) Balance(ctx context.Context, ownerID string) (Balance, error) {
	return svc.repo.GetBalance(ctx, ownerID)
}

// Track records a usage event best-effort; the caller decides whether to
// surface the returned error as a warning.
func (svc *Service) Track(ctx context.Context, ownerID string, ev Event) error {
	ev.OwnerID = ownerID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return svc.repo.RecordUsage(ctx, ev)
}
