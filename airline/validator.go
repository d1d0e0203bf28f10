package airline

// Search is a validated flight search: a whitelisted route and two resolved dates.
// The return date is not required to be on or after the departure date.
type Search struct {
	Route
	DepartureDate Date `json:"departure_date"`
	ReturnDate    Date `json:"return_date"`
}

// Validator turns raw search arguments into a Search.
type Validator struct {
	dates *DateParser
}

func NewValidator(dates *DateParser) *Validator {
	if dates == nil {
		dates = NewDateParser(nil)
	}
	return &Validator{dates: dates}
}

// Validate normalizes the codes, resolves both dates and checks the whitelist, in that order.
// A date failure is reported before the route is looked at.
func (v *Validator) Validate(origin, destination, departure, ret string) (Search, *Failure) {
	route := NormalizeRoute(origin, destination)

	depart, okDepart := v.dates.Parse(departure)
	back, okBack := v.dates.Parse(ret)
	if !okDepart || !okBack {
		return Search{}, DateParseFailure()
	}

	if !Supported(route) {
		return Search{}, UnsupportedRouteFailure()
	}

	return Search{Route: route, DepartureDate: depart, ReturnDate: back}, nil
}
