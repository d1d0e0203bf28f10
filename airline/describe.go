package airline

import (
	"fmt"
	"strings"
)

// Describe renders a single flight as one line of text.
func (f Flight) Describe() string {
	return fmt.Sprintf("Flight %d: %s→%s, %s→%s at $%s", f.ID, f.Origin, f.Destination, f.DepartureDate, f.ReturnDate, f.Price)
}

// DescribeFlights renders a flight list the way the assistant presents it to users.
func DescribeFlights(flights []Flight) string {
	var b strings.Builder
	b.WriteString("I found the following flights:")
	for _, f := range flights {
		b.WriteString("\n- ")
		b.WriteString(f.Describe())
	}
	return b.String()
}

// DescribeBooking renders a purchase outcome.
func DescribeBooking(b BookingResult) string {
	if b.Succeeded() {
		return "Your booking is confirmed! Receipt: " + b.ReceiptURL
	}
	if b.Failure != nil {
		return b.Failure.Message
	}
	return "the booking could not be completed"
}
