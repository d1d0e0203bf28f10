package tool

import (
	"fmt"
	"sync"

	"github.com/casualjim/latravels/pkg/jsonx"
	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	json "github.com/goccy/go-json"
)

// SearchArgs are the arguments of find_flights.
type SearchArgs struct {
	Origin        string `json:"origin" jsonschema:"description=3-letter IATA code of the departure airport such as LAX"`
	Destination   string `json:"destination" jsonschema:"description=3-letter IATA code of the arrival airport such as NYC"`
	DepartureDate string `json:"departure_date" jsonschema:"description=Outbound date as YYYY-MM-DD or a phrase such as next friday"`
	ReturnDate    string `json:"return_date" jsonschema:"description=Return date as YYYY-MM-DD or a phrase such as next sunday"`
}

// PurchaseArgs are the arguments of book_flight.
type PurchaseArgs struct {
	FlightID string `json:"flight_id" jsonschema:"description=Id of a flight from the most recent search"`
	Price    string `json:"price" jsonschema:"description=Quoted price of that flight in USD such as 431.00"`
}

// Definition is how a tool is advertised to a reasoning backend.
type Definition struct {
	Kind        Kind
	Name        string
	Description string
	Schema      *jsonschema.Schema
}

// Parameters returns the schema as a generic JSON object, the shape LLM SDKs expect.
func (d Definition) Parameters() (map[string]any, error) {
	return jsonx.ToDynamicJSON(d.Schema)
}

// SchemaJSON returns the raw JSON schema document.
func (d Definition) SchemaJSON() ([]byte, error) {
	return json.Marshal(d.Schema)
}

type Option = opts.Option[Definition]

var Description = opts.ForName[Definition, string]("Description")

var argsReflector = jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
	Anonymous:      true,
}

// Define builds the definition of kind, reflecting the schema from its argument struct.
func Define(kind Kind, options ...Option) (Definition, error) {
	def := Definition{Kind: kind, Name: kind.String()}
	switch kind {
	case KindSearch:
		def.Description = "Search round-trip flights. Dates may be written in natural language."
		def.Schema = argsReflector.Reflect(&SearchArgs{})
	case KindPurchase:
		def.Description = "Book one flight from the latest search results at the quoted price."
		def.Schema = argsReflector.Reflect(&PurchaseArgs{})
	default:
		return Definition{}, fmt.Errorf("invalid tool kind %d", int(kind))
	}
	def.Schema.Version = ""
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	return def, nil
}

var catalog = sync.OnceValue(func() []Definition {
	defs := make([]Definition, 0, 2)
	for _, k := range Kinds() {
		def, err := Define(k)
		if err != nil {
			panic(err)
		}
		defs = append(defs, def)
	}
	return defs
})

// Catalog returns the definitions of every tool in a fixed order.
func Catalog() []Definition {
	return append([]Definition(nil), catalog()...)
}

// Lookup returns the catalog definition of kind.
func Lookup(kind Kind) (Definition, bool) {
	for _, d := range catalog() {
		if d.Kind == kind {
			return d, true
		}
	}
	return Definition{}, false
}
