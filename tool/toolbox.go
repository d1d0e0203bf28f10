package tool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/pkg/slogx"
	"github.com/fogfish/opts"
)

// Notifier is told about every confirmed booking.
type Notifier interface {
	BookingConfirmed(ctx context.Context, booking airline.BookingResult) error
}

// Toolbox executes decoded calls against the booking domain.
type Toolbox struct {
	validator *airline.Validator
	generator *airline.Generator
	purchaser *airline.Purchaser
	notifier  Notifier
}

type ToolboxOption = opts.Option[Toolbox]

func WithNotifier(n Notifier) ToolboxOption {
	return opts.Type[Toolbox](func(t *Toolbox) error {
		t.notifier = n
		return nil
	})
}

func NewToolbox(validator *airline.Validator, generator *airline.Generator, purchaser *airline.Purchaser, options ...ToolboxOption) (*Toolbox, error) {
	if purchaser == nil {
		return nil, fmt.Errorf("a purchaser is required")
	}
	if validator == nil {
		validator = airline.NewValidator(nil)
	}
	if generator == nil {
		generator = airline.NewGenerator(nil)
	}
	tb := &Toolbox{validator: validator, generator: generator, purchaser: purchaser}
	if err := opts.Apply(tb, options); err != nil {
		return nil, err
	}
	return tb, nil
}

// Execute runs call. It never returns an error: every problem is reported in the Observation.
func (t *Toolbox) Execute(ctx context.Context, call Call) Observation {
	obs := Observation{Kind: call.Kind, InvocationID: call.InvocationID}
	switch call.Kind {
	case KindSearch:
		if call.Search == nil {
			obs.Failure = airline.InvalidToolArgumentsFailure(SearchName, fmt.Errorf("missing arguments"))
			return obs
		}
		obs.Flights, obs.Failure = t.Search(ctx, *call.Search)
	case KindPurchase:
		if call.Purchase == nil {
			obs.Failure = airline.InvalidToolArgumentsFailure(PurchaseName, fmt.Errorf("missing arguments"))
			return obs
		}
		booking := t.Purchase(ctx, *call.Purchase)
		obs.Booking = &booking
	default:
		obs.Failure = airline.UnknownToolFailure(call.Kind.String())
	}
	return obs
}

func (t *Toolbox) Search(ctx context.Context, args SearchArgs) ([]airline.Flight, *airline.Failure) {
	search, failure := t.validator.Validate(args.Origin, args.Destination, args.DepartureDate, args.ReturnDate)
	if failure != nil {
		slog.InfoContext(ctx, "flight search rejected", slog.String("code", string(failure.Code)))
		return nil, failure
	}
	flights := t.generator.Generate(search)
	slog.InfoContext(ctx, "flight search", slog.String("route", search.Route.String()), slog.Int("results", len(flights)))
	return flights, nil
}

func (t *Toolbox) Purchase(ctx context.Context, args PurchaseArgs) airline.BookingResult {
	booking := t.purchaser.Purchase(ctx, args.FlightID, args.Price)
	if !booking.Succeeded() {
		slog.InfoContext(ctx, "booking failed", slog.String("flight", booking.FlightID), slog.String("code", string(booking.Failure.Code)))
		return booking
	}

	slog.InfoContext(ctx, "booking confirmed", slog.String("flight", booking.FlightID), slog.String("amount", booking.Amount.String()))
	if t.notifier != nil {
		if err := t.notifier.BookingConfirmed(ctx, booking); err != nil {
			slog.WarnContext(ctx, "failed to publish booking notification", slogx.Error(err))
		}
	}
	return booking
}
