package tool

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/casualjim/latravels/airline"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var validators = sync.OnceValues(func() (map[Kind]*jsonschema.Schema, error) {
	compiled := make(map[Kind]*jsonschema.Schema, 2)
	for _, def := range catalog() {
		raw, err := def.SchemaJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal %s schema: %w", def.Name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s schema: %w", def.Name, err)
		}
		url := def.Name + ".json"
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add %s schema: %w", def.Name, err)
		}
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", def.Name, err)
		}
		compiled[def.Kind] = sch
	}
	return compiled, nil
})

// Decode turns a raw invocation into a Call. The tool name must be in the catalog and the
// arguments must satisfy its schema. Numeric flight ids and prices are accepted and turned into strings.
func Decode(inv Invocation) (Call, *airline.Failure) {
	kind, ok := ParseKind(strings.TrimSpace(inv.Name))
	if !ok {
		return Call{}, airline.UnknownToolFailure(inv.Name)
	}

	args := strings.TrimSpace(inv.Arguments)
	if args == "" {
		args = "{}"
	}
	if !gjson.Valid(args) {
		return Call{}, airline.InvalidToolArgumentsFailure(kind.String(), fmt.Errorf("arguments are not valid JSON"))
	}
	if kind == KindPurchase {
		for _, field := range []string{"flight_id", "price"} {
			v := gjson.Get(args, field)
			if v.Type != gjson.Number {
				continue
			}
			coerced, err := sjson.Set(args, field, v.Raw)
			if err != nil {
				return Call{}, airline.InvalidToolArgumentsFailure(kind.String(), err)
			}
			args = coerced
		}
	}

	if err := validate(kind, args); err != nil {
		return Call{}, airline.InvalidToolArgumentsFailure(kind.String(), err)
	}

	call := Call{Kind: kind, InvocationID: inv.ID}
	switch kind {
	case KindSearch:
		call.Search = &SearchArgs{
			Origin:        gjson.Get(args, "origin").String(),
			Destination:   gjson.Get(args, "destination").String(),
			DepartureDate: gjson.Get(args, "departure_date").String(),
			ReturnDate:    gjson.Get(args, "return_date").String(),
		}
	case KindPurchase:
		call.Purchase = &PurchaseArgs{
			FlightID: gjson.Get(args, "flight_id").String(),
			Price:    gjson.Get(args, "price").String(),
		}
	}
	return call, nil
}

func validate(kind Kind, args string) error {
	schemas, err := validators()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(args))
	if err != nil {
		return err
	}
	return schemas[kind].Validate(inst)
}
