package payment

import (
	"context"
	"errors"
	"fmt"
)

const CurrencyUSD = "usd"

// Charge is a request to capture Amount minor units of Currency.
type Charge struct {
	Amount      int64
	Currency    string
	Description string
}

func (c Charge) Validate() error {
	var errs []error
	if c.Amount < 0 {
		errs = append(errs, fmt.Errorf("amount must not be negative, got %d", c.Amount))
	}
	if c.Currency == "" {
		errs = append(errs, errors.New("currency is required"))
	}
	return errors.Join(errs...)
}

// Receipt references a captured charge.
type Receipt struct {
	ChargeID string
	URL      string
}

type Charger interface {
	Charge(ctx context.Context, charge Charge) (Receipt, error)
}

// Func adapts a function to the Charger interface.
type Func func(ctx context.Context, charge Charge) (Receipt, error)

func (f Func) Charge(ctx context.Context, charge Charge) (Receipt, error) {
	return f(ctx, charge)
}
