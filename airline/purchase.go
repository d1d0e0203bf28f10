package airline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/casualjim/latravels/payment"
)

// BookingStatus is the outcome of a purchase.
type BookingStatus string

const (
	BookingSucceeded BookingStatus = "success"
	BookingFailed    BookingStatus = "error"
)

// BookingResult is what the purchase tool reports back into the conversation.
type BookingResult struct {
	Status     BookingStatus `json:"status"`
	FlightID   string        `json:"flight_id"`
	Amount     Amount        `json:"amount"`
	ReceiptURL string        `json:"receipt_url,omitempty"`
	Failure    *Failure      `json:"failure,omitempty"`
}

func (b BookingResult) Succeeded() bool {
	return b.Status == BookingSucceeded
}

// ErrNoCharger is reported by a Purchaser created without a payment collaborator.
var ErrNoCharger = errors.New("no payment processor is configured")

// Purchaser captures a payment for a selected flight.
type Purchaser struct {
	charger payment.Charger
}

func NewPurchaser(charger payment.Charger) *Purchaser {
	return &Purchaser{charger: charger}
}

// Purchase parses the price and charges it. Errors from the payment collaborator never
// escape; they are reported as a failed BookingResult.
func (p *Purchaser) Purchase(ctx context.Context, flightID, price string) BookingResult {
	flightID = strings.TrimSpace(flightID)

	amount, err := ParseAmount(price)
	if err != nil {
		slog.DebugContext(ctx, "rejecting price", slog.String("price", price), slog.String("reason", err.Error()))
		return BookingResult{Status: BookingFailed, FlightID: flightID, Failure: InvalidPriceFailure(price)}
	}
	if p.charger == nil {
		slog.ErrorContext(ctx, "purchase without a payment processor", slog.String("flight", flightID))
		return BookingResult{Status: BookingFailed, FlightID: flightID, Amount: amount, Failure: PaymentFailure(ErrNoCharger)}
	}

	receipt, err := p.charger.Charge(ctx, payment.Charge{
		Amount:      int64(amount),
		Currency:    payment.CurrencyUSD,
		Description: "Flight booking for " + flightID,
	})
	if err != nil {
		return BookingResult{Status: BookingFailed, FlightID: flightID, Amount: amount, Failure: PaymentFailure(err)}
	}

	return BookingResult{Status: BookingSucceeded, FlightID: flightID, Amount: amount, ReceiptURL: receipt.URL}
}
