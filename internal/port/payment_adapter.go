package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/remate/marketplace/internal/core/domain"
)

// PaymentAdapter is the boundary to the payment gateway. The real
// integration lives outside this repository; the core depends only on
// this contract and ships a simulated implementation.
type PaymentAdapter interface {
	// AuthorizeCard runs a synchronous card authorization. A decline is
	// reported in the result, not as an error; errors mean the gateway
	// itself failed.
	AuthorizeCard(ctx context.Context, card domain.CardDetails, amount decimal.Decimal) (domain.CardAuthResult, error)

	// RecordTransferProof registers an uploaded proof-of-transfer for
	// later manual verification.
	RecordTransferProof(ctx context.Context, orderID, proofRef string) error
}
