package airline

import (
	"math/rand/v2"
)

// Currency is the only currency the mock network sells in.
const Currency = "USD"

const (
	minFareCents int64 = 30000
	maxFareCents int64 = 50000
	flightsPerSearch   = 3
)

// Flight is one priced offer. IDs are 1-based and only unique within one search result.
type Flight struct {
	ID            int    `json:"id"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate Date   `json:"departure_date"`
	ReturnDate    Date   `json:"return_date"`
	Price         Amount `json:"price"`
	Currency      string `json:"currency"`
}

// PriceSource draws a uniform integer in [0, n). *rand.Rand satisfies it.
type PriceSource interface {
	Int64N(n int64) int64
}

type globalSource struct{}

func (globalSource) Int64N(n int64) int64 { return rand.Int64N(n) }

// Generator synthesizes flights. Calling it twice with the same search yields different prices.
type Generator struct {
	src PriceSource
}

func NewGenerator(src PriceSource) *Generator {
	if src == nil {
		src = globalSource{}
	}
	return &Generator{src: src}
}

// Generate returns three flights for s with fares uniformly distributed between 300.00 and
// 500.00 inclusive.
func (g *Generator) Generate(s Search) []Flight {
	flights := make([]Flight, flightsPerSearch)
	for i := range flights {
		flights[i] = Flight{
			ID:            i + 1,
			Origin:        s.Origin,
			Destination:   s.Destination,
			DepartureDate: s.DepartureDate,
			ReturnDate:    s.ReturnDate,
			Price:         Amount(minFareCents + g.src.Int64N(maxFareCents-minFareCents+1)),
			Currency:      Currency,
		}
	}
	return flights
}
