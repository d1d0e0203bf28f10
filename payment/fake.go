package payment

import (
	"context"
	"fmt"
	"sync"
)

// Fake records charges in memory and hands out predictable receipt URLs.
type Fake struct {
	mu      sync.Mutex
	charges []Charge
	err     error
}

func NewFake() *Fake {
	return &Fake{}
}

// FailWith makes every following charge fail with err. A nil err restores success.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *Fake) Charge(ctx context.Context, charge Charge) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if err := charge.Validate(); err != nil {
		return Receipt{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Receipt{}, f.err
	}
	f.charges = append(f.charges, charge)
	id := fmt.Sprintf("ch_fake_%d", len(f.charges))
	return Receipt{ChargeID: id, URL: "https://pay.example.test/receipts/" + id}, nil
}

// Charges returns a copy of every successful charge so far.
func (f *Fake) Charges() []Charge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Charge(nil), f.charges...)
}
