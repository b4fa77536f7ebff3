// Package treasury defines the funding pool and payout records.
package treasury

import "time"

// Stats is a read-only snapshot of the ledger-wide counters.
type Stats struct {
	TotalDataPoints int64 `json:"total_data_points"`
	TreasuryBalance int64 `json:"treasury_balance"`
	// NominalPool counts total historical funding. It is informational only
	// and is never reconciled against the live balance.
	NominalPool int64 `json:"nominal_pool"`
}

// Payout is the journal record written for every successful claim.
type Payout struct {
	ID          string    `json:"id"`
	Contributor string    `json:"contributor"`
	Amount      int64     `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}
