package airline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Amount is a money amount in minor units (cents). Its JSON form is a 2-decimal string.
type Amount int64

func (a Amount) String() string {
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	return fmt.Sprintf("%s%d.%02d", sign, a/100, a%100)
}

// Float returns the amount in major units.
func (a Amount) Float() float64 {
	return float64(a) / 100
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}
	v := gjson.ParseBytes(data)
	var text string
	switch v.Type {
	case gjson.String:
		text = v.String()
	case gjson.Number:
		text = v.Raw
	default:
		return fmt.Errorf("amount must be a string or a number, got %s", v.Type)
	}
	parsed, err := ParseAmount(text)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

var currencyPrefixes = []string{"US$", "USD", "$"}

// ParseAmount parses a price as written by a person or a model: "431.00", "$431",
// "USD 1,020.50". The value is rounded to the nearest cent.
func ParseAmount(text string) (Amount, error) {
	s := strings.TrimSpace(text)
	for _, p := range currencyPrefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, errors.New("empty price")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", text)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", text)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative price: %q", text)
	}
	return Amount(math.Round(f * 100)), nil
}
