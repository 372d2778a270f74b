package token

import (
	"errors"
	"time"
)

// ErrInsufficient is returned by Spend when the ledger refuses the charge.
// The refusal itself carries the remaining balance; balances never go negative.
var ErrInsufficient = errors.New("insufficient tokens")

// Balance holds the per-user buckets kept by the ledger.
type Balance struct {
	Personal int `json:"personal"`
	Reserve  int `json:"reserve"`
	Pool     int `json:"pool"`
}

func (b Balance) Total() int {
	return b.Personal + b.Reserve + b.Pool
}

// SpendResult is the structured outcome of the atomic use_tokens procedure.
type SpendResult struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Source    string `json:"source,omitempty"` // bucket the spend came from
}

// Event is a best-effort usage record; failures to store one never fail the
// request that produced it.
type Event struct {
	OwnerID   string                 `json:"-"`
	Name      string                 `json:"name" validate:"required"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type SpendRequest struct {
	Amount int    `json:"amount" validate:"required,min=1"`
	Reason string `json:"reason" validate:"required"`
}
