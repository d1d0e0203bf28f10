package events

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	typeTurn        = "turn"
	typeStateChange = "state"
	typeError       = "error"
)

// ToJSON serializes an event with its type marker.
func ToJSON(event Event) ([]byte, error) {
	var kind string
	switch event.(type) {
	case Turn:
		kind = typeTurn
	case StateChange:
		kind = typeStateChange
	case Error:
		kind = typeError
	default:
		return nil, fmt.Errorf("unknown event type: %T", event)
	}

	b, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(b, "type", kind)
}

// FromJSON parses an event produced by ToJSON.
func FromJSON(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid event json")
	}

	switch kind := gjson.GetBytes(data, "type").String(); kind {
	case typeTurn:
		return decode[Turn](data)
	case typeStateChange:
		return decode[StateChange](data)
	case typeError:
		return decode[Error](data)
	case "":
		return nil, fmt.Errorf("event has no type")
	default:
		return nil, fmt.Errorf("unknown event type: %s", kind)
	}
}

func decode[T Event](data []byte) (Event, error) {
	var event T
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return event, nil
}
