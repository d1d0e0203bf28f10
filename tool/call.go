package tool

import (
	"github.com/casualjim/latravels/airline"
)

// Invocation is a reasoning backend's request to run one tool.
type Invocation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Call is a decoded Invocation. Exactly one of Search and Purchase is set, matching Kind.
type Call struct {
	Kind         Kind          `json:"kind"`
	InvocationID string        `json:"invocation_id"`
	Search       *SearchArgs   `json:"search,omitempty"`
	Purchase     *PurchaseArgs `json:"purchase,omitempty"`
}

// Observation is the structured outcome of executing a Call.
type Observation struct {
	Kind         Kind                   `json:"kind"`
	InvocationID string                 `json:"invocation_id"`
	Flights      []airline.Flight       `json:"flights,omitempty"`
	Booking      *airline.BookingResult `json:"booking,omitempty"`
	Failure      *airline.Failure       `json:"failure,omitempty"`
}

// Failed reports whether the tool could not produce its result. A declined payment is a failure.
func (o Observation) Failed() bool {
	if o.Failure != nil {
		return true
	}
	return o.Booking != nil && !o.Booking.Succeeded()
}

// Payload is what the reasoning step gets to see: the flights, the booking or the failure.
func (o Observation) Payload() any {
	switch {
	case o.Failure != nil:
		return o.Failure
	case o.Booking != nil:
		return o.Booking
	default:
		if o.Flights == nil {
			return []airline.Flight{}
		}
		return o.Flights
	}
}
