package treasury

import (
	"context"
	"sync"
)

// Transferer moves claimed funds to a contributor. The real rail (an on-chain
// transfer, a payment processor) lives outside this core; implementations
// report failure so the claim can be rolled back.
type Transferer interface {
	Transfer(ctx context.Context, recipient string, amount int64) error
}

// TransferFunc adapts a function to the Transferer interface.
type TransferFunc func(ctx context.Context, recipient string, amount int64) error

func (f TransferFunc) Transfer(ctx context.Context, recipient string, amount int64) error {
	return f(ctx, recipient, amount)
}

// LedgerTransferer records outbound transfers in memory. It is the default
// rail for local development and tests.
type LedgerTransferer struct {
	mu   sync.Mutex
	sent map[string]int64
}

// NewLedgerTransferer creates an empty transferer.
func NewLedgerTransferer() *LedgerTransferer {
	return &LedgerTransferer{sent: make(map[string]int64)}
}

// Transfer records the outbound amount against the recipient.
func (t *LedgerTransferer) Transfer(_ context.Context, recipient string, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent[recipient] += amount
	return nil
}

// Sent returns the total amount transferred to the recipient.
func (t *LedgerTransferer) Sent(recipient string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent[recipient]
}
