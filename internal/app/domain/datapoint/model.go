// Package datapoint defines the data submission record tracked by the ledger.
package datapoint

import "time"

// DataPoint is a single contributed data reference. The payload itself lives
// in external content-addressed storage; only its fingerprint is recorded.
type DataPoint struct {
	ID          int64     `json:"id"`
	Contributor string    `json:"contributor"`
	Fingerprint string    `json:"fingerprint"`
	Category    string    `json:"category"`
	Reward      int64     `json:"reward"`
	Verified    bool      `json:"verified"`
	SubmittedAt time.Time `json:"submitted_at"`
	VerifiedAt  time.Time `json:"verified_at,omitempty"`
	VerifiedBy  string    `json:"verified_by,omitempty"`
}
