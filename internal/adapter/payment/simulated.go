// Package payment holds the simulated gateway. The real integration is
// an external system; the core only depends on the port contract.
package payment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/remate/marketplace/internal/core/domain"
)

// Card numbers starting with this prefix are always declined. Lets
// integration tests and demos exercise the failure path.
const declinePrefix = "0000"

type SimulatedGateway struct {
	now func() time.Time
}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{now: time.Now}
}

// AuthorizeCard approves any structurally valid, unexpired card outside
// the decline prefix. Declines come back in the result with a reason; a
// non-nil error would mean the gateway itself is down.
func (g *SimulatedGateway) AuthorizeCard(ctx context.Context, card domain.CardDetails, amount decimal.Decimal) (domain.CardAuthResult, error) {
	number := strings.ReplaceAll(strings.ReplaceAll(card.Number, " ", ""), "-", "")

	if len(number) < 13 || len(number) > 19 || !digitsOnly(number) {
		return domain.CardAuthResult{Declined: "número de tarjeta inválido"}, nil
	}
	if len(card.CVV) < 3 || len(card.CVV) > 4 || !digitsOnly(card.CVV) {
		return domain.CardAuthResult{Declined: "código de seguridad inválido"}, nil
	}
	if expired(card.ExpMonth, card.ExpYear, g.now()) {
		return domain.CardAuthResult{Declined: "tarjeta vencida"}, nil
	}
	if strings.HasPrefix(number, declinePrefix) {
		return domain.CardAuthResult{Declined: "tarjeta rechazada por el emisor"}, nil
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.CardAuthResult{Declined: "monto inválido"}, nil
	}

	return domain.CardAuthResult{
		Approved:  true,
		Reference: "AUTH-" + uuid.NewString(),
		LastFour:  number[len(number)-4:],
	}, nil
}

// RecordTransferProof always accepts; verification is a manual,
// out-of-band step.
func (g *SimulatedGateway) RecordTransferProof(ctx context.Context, orderID, proofRef string) error {
	return nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func expired(month, year int, now time.Time) bool {
	if month < 1 || month > 12 || year < 1 {
		return true
	}
	if year < 100 {
		year += 2000
	}
	if year > now.Year() {
		return false
	}
	if year < now.Year() {
		return true
	}
	return time.Month(month) < now.Month()
}
