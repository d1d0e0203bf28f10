package tool

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Kind enumerates the tools. The zero value is invalid.
type Kind int

const (
	KindSearch Kind = iota + 1
	KindPurchase
)

const (
	SearchName   = "find_flights"
	PurchaseName = "book_flight"
)

// Kinds lists every tool kind in catalog order.
func Kinds() []Kind {
	return []Kind{KindSearch, KindPurchase}
}

func (k Kind) String() string {
	switch k {
	case KindSearch:
		return SearchName
	case KindPurchase:
		return PurchaseName
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) Valid() bool {
	return k == KindSearch || k == KindPurchase
}

// ParseKind maps a tool name to its kind.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case SearchName:
		return KindSearch, true
	case PurchaseName:
		return KindPurchase, true
	default:
		return 0, false
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid tool kind %d", int(k))
	}
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, ok := ParseKind(name)
	if !ok {
		return fmt.Errorf("unknown tool %q", name)
	}
	*k = parsed
	return nil
}
