package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// TestCardToken is Stripe's always-succeeding test card.
const TestCardToken = "tok_visa"

type customerCreator interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
}

type chargeCreator interface {
	New(params *stripe.ChargeParams) (*stripe.Charge, error)
}

// Stripe charges through the Stripe API. Every charge creates a throwaway customer backed by
// the test card token.
type Stripe struct {
	customers customerCreator
	charges   chargeCreator
	source    string
}

func NewStripe(apiKey string) *Stripe {
	sc := client.New(apiKey, nil)
	return &Stripe{customers: sc.Customers, charges: sc.Charges, source: TestCardToken}
}

func (s *Stripe) Charge(ctx context.Context, charge Charge) (Receipt, error) {
	if err := charge.Validate(); err != nil {
		return Receipt{}, err
	}

	custParams := &stripe.CustomerParams{Source: stripe.String(s.source)}
	custParams.Context = ctx
	cust, err := s.customers.New(custParams)
	if err != nil {
		return Receipt{}, fmt.Errorf("create customer: %w", err)
	}

	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(charge.Amount),
		Currency:    stripe.String(charge.Currency),
		Description: stripe.String(charge.Description),
		Customer:    stripe.String(cust.ID),
	}
	params.Context = ctx
	ch, err := s.charges.New(params)
	if err != nil {
		return Receipt{}, fmt.Errorf("create charge: %w", err)
	}

	slog.DebugContext(ctx, "captured stripe charge", slog.String("charge", ch.ID), slog.Int64("amount", charge.Amount))
	return Receipt{ChargeID: ch.ID, URL: ch.ReceiptURL}, nil
}
