package airline

import (
	"slices"
	"strings"
)

// Hub is the only origin the mock network flies from.
const Hub = "LAX"

// Route is an origin/destination pair of 3-letter IATA codes.
type Route struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

func (r Route) String() string {
	return r.Origin + "→" + r.Destination
}

var whitelist = []Route{
	{Origin: Hub, Destination: "NYC"},
	{Origin: Hub, Destination: "MUC"},
	{Origin: Hub, Destination: "SFO"},
	{Origin: Hub, Destination: "CDG"},
	{Origin: Hub, Destination: "ORD"},
}

// cityCodes lets users and models refer to airports by city name.
var cityCodes = map[string]string{
	"los angeles":   "LAX",
	"new york":      "NYC",
	"new york city": "NYC",
	"munich":        "MUC",
	"san francisco": "SFO",
	"paris":         "CDG",
	"chicago":       "ORD",
}

// Routes returns the whitelisted routes in declaration order.
func Routes() []Route {
	return slices.Clone(whitelist)
}

// Supported reports whether r is whitelisted. r must already be normalized.
func Supported(r Route) bool {
	return slices.Contains(whitelist, r)
}

// SupportedDestinations lists the destinations reachable from the hub, in whitelist order.
func SupportedDestinations() []string {
	dests := make([]string, 0, len(whitelist))
	for _, r := range whitelist {
		if r.Origin == Hub {
			dests = append(dests, r.Destination)
		}
	}
	return dests
}

// NormalizeCode trims and uppercases an airport code. Known city names are mapped to their
// code first.
func NormalizeCode(s string) string {
	s = strings.TrimSpace(s)
	if code, ok := cityCodes[strings.ToLower(s)]; ok {
		return code
	}
	return strings.ToUpper(s)
}

// NormalizeRoute applies NormalizeCode to both ends.
func NormalizeRoute(origin, destination string) Route {
	return Route{Origin: NormalizeCode(origin), Destination: NormalizeCode(destination)}
}
