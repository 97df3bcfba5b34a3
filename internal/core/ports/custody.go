package ports

import (
	"context"

	"tipvault/internal/core/domain"
)

// AddressAllocator requests a fresh receive address from the custody provider.
// The ledger store invokes it at most once per account creation.
type AddressAllocator func(ctx context.Context) (string, error)

// PaymentResult is the provider's answer to a payment submission. A rejection
// is a definitive provider decision, not a transport failure; transport
// failures surface as errors instead.
type PaymentResult struct {
	Accepted    bool
	ProviderRef string // provider transaction identifier, set when accepted
	Message     string // provider rejection message, set when rejected
}

// CustodyClient wraps the custody provider's remote operations. All calls are
// bounded by the client's configured timeout and fail with typed provider
// errors (unavailable, timeout, rejected).
type CustodyClient interface {
	// AllocateAddress requests a new receive address. Failures are surfaced to
	// the caller without retry so a lost response cannot orphan allocations
	// silently.
	AllocateAddress(ctx context.Context) (string, error)
	// ConfirmedBalance returns the provider's view of confirmed funds held at
	// the address, in base units.
	ConfirmedBalance(ctx context.Context, address string) (domain.Amount, error)
	// SubmitPayment asks the provider to execute an outbound payment. The
	// returned result is the single source of truth for whether external funds
	// moved.
	SubmitPayment(ctx context.Context, destination string, amount domain.Amount) (*PaymentResult, error)
}
