package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) BookingConfirmed(ctx context.Context, booking airline.BookingResult) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func newTestToolbox(t *testing.T, charger payment.Charger, options ...ToolboxOption) *Toolbox {
	t.Helper()
	now := func() time.Time { return time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC) }
	tb, err := NewToolbox(
		airline.NewValidator(airline.NewDateParser(now)),
		airline.NewGenerator(nil),
		airline.NewPurchaser(charger),
		options...,
	)
	require.NoError(t, err)
	return tb
}

func TestKind(t *testing.T) {
	assert.Equal(t, "find_flights", KindSearch.String())
	assert.Equal(t, "book_flight", KindPurchase.String())
	assert.False(t, Kind(0).Valid())

	k, ok := ParseKind("book_flight")
	assert.True(t, ok)
	assert.Equal(t, KindPurchase, k)
	_, ok = ParseKind("cancel_flight")
	assert.False(t, ok)

	b, err := KindSearch.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"find_flights"`, string(b))

	var back Kind
	require.NoError(t, back.UnmarshalJSON(b))
	assert.Equal(t, KindSearch, back)
	assert.Error(t, back.UnmarshalJSON([]byte(`"nope"`)))
}

func TestCatalog(t *testing.T) {
	defs := Catalog()
	require.Len(t, defs, 2)
	assert.Equal(t, "find_flights", defs[0].Name)
	assert.Equal(t, "book_flight", defs[1].Name)

	params, err := defs[0].Parameters()
	require.NoError(t, err)
	assert.Equal(t, "object", params["type"])
	props, ok := params["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "origin")
	assert.Contains(t, props, "destination")
	assert.Contains(t, props, "departure_date")
	assert.Contains(t, props, "return_date")
	assert.ElementsMatch(t, []any{"origin", "destination", "departure_date", "return_date"}, params["required"])

	params, err = defs[1].Parameters()
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"flight_id", "price"}, params["required"])

	def, ok := Lookup(KindPurchase)
	require.True(t, ok)
	assert.Equal(t, "book_flight", def.Name)

	custom, err := Define(KindSearch, Description("custom"))
	require.NoError(t, err)
	assert.Equal(t, "custom", custom.Description)

	_, err = Define(Kind(9))
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		call, failure := Decode(Invocation{
			ID:        "call_1",
			Name:      "find_flights",
			Arguments: `{"origin":"LAX","destination":"NYC","departure_date":"next friday","return_date":"next sunday"}`,
		})
		require.Nil(t, failure)
		assert.Equal(t, KindSearch, call.Kind)
		assert.Equal(t, "call_1", call.InvocationID)
		assert.Equal(t, &SearchArgs{Origin: "LAX", Destination: "NYC", DepartureDate: "next friday", ReturnDate: "next sunday"}, call.Search)
		assert.Nil(t, call.Purchase)
	})

	t.Run("purchase with numbers", func(t *testing.T) {
		call, failure := Decode(Invocation{ID: "call_2", Name: "book_flight", Arguments: `{"flight_id":2,"price":431.0}`})
		require.Nil(t, failure)
		assert.Equal(t, &PurchaseArgs{FlightID: "2", Price: "431.0"}, call.Purchase)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, failure := Decode(Invocation{Name: "cancel_flight", Arguments: `{}`})
		require.NotNil(t, failure)
		assert.Equal(t, airline.CodeUnknownTool, failure.Code)
		assert.Equal(t, "unknown tool: cancel_flight", failure.Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, failure := Decode(Invocation{Name: "find_flights", Arguments: `{"origin":`})
		require.NotNil(t, failure)
		assert.Equal(t, airline.CodeInvalidToolArguments, failure.Code)
	})

	t.Run("missing field", func(t *testing.T) {
		_, failure := Decode(Invocation{Name: "find_flights", Arguments: `{"origin":"LAX","destination":"NYC"}`})
		require.NotNil(t, failure)
		assert.Equal(t, airline.CodeInvalidToolArguments, failure.Code)
	})

	t.Run("empty arguments", func(t *testing.T) {
		_, failure := Decode(Invocation{Name: "book_flight"})
		require.NotNil(t, failure)
		assert.Equal(t, airline.CodeInvalidToolArguments, failure.Code)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, failure := Decode(Invocation{Name: "find_flights", Arguments: `{"origin":1,"destination":"NYC","departure_date":"a","return_date":"b"}`})
		require.NotNil(t, failure)
		assert.Equal(t, airline.CodeInvalidToolArguments, failure.Code)
	})
}

func TestToolbox_Search(t *testing.T) {
	tb := newTestToolbox(t, payment.NewFake())
	ctx := context.Background()

	obs := tb.Execute(ctx, Call{Kind: KindSearch, InvocationID: "c1", Search: &SearchArgs{Origin: "lax", Destination: "nyc", DepartureDate: "2026-10-23", ReturnDate: "2026-10-25"}})
	require.False(t, obs.Failed())
	assert.Equal(t, "c1", obs.InvocationID)
	require.Len(t, obs.Flights, 3)
	assert.Equal(t, airline.Date("2026-10-23"), obs.Flights[0].DepartureDate)
	assert.Equal(t, obs.Flights, obs.Payload())

	obs = tb.Execute(ctx, Call{Kind: KindSearch, Search: &SearchArgs{Origin: "LAX", Destination: "LHR", DepartureDate: "2026-10-23", ReturnDate: "2026-10-25"}})
	require.True(t, obs.Failed())
	assert.Equal(t, airline.CodeUnsupportedRoute, obs.Failure.Code)
	assert.Equal(t, obs.Failure, obs.Payload())

	obs = tb.Execute(ctx, Call{Kind: KindSearch})
	require.True(t, obs.Failed())
	assert.Equal(t, airline.CodeInvalidToolArguments, obs.Failure.Code)
}

func TestToolbox_Purchase(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies on success", func(t *testing.T) {
		n := &mockNotifier{}
		n.On("BookingConfirmed", mock.Anything, mock.MatchedBy(func(b airline.BookingResult) bool {
			return b.FlightID == "2" && b.Amount == 43100
		})).Return(errors.New("kafka down")).Once()

		tb := newTestToolbox(t, payment.NewFake(), WithNotifier(n))
		obs := tb.Execute(ctx, Call{Kind: KindPurchase, Purchase: &PurchaseArgs{FlightID: "2", Price: "431.00"}})
		require.False(t, obs.Failed())
		require.NotNil(t, obs.Booking)
		assert.NotEmpty(t, obs.Booking.ReceiptURL)
		n.AssertExpectations(t)
	})

	t.Run("declined payment does not notify", func(t *testing.T) {
		n := &mockNotifier{}
		fake := payment.NewFake()
		fake.FailWith(errors.New("declined"))

		tb := newTestToolbox(t, fake, WithNotifier(n))
		obs := tb.Execute(ctx, Call{Kind: KindPurchase, Purchase: &PurchaseArgs{FlightID: "2", Price: "431.00"}})
		require.True(t, obs.Failed())
		assert.Equal(t, airline.CodePayment, obs.Booking.Failure.Code)
		n.AssertNotCalled(t, "BookingConfirmed", mock.Anything, mock.Anything)
	})

	t.Run("invalid kind", func(t *testing.T) {
		tb := newTestToolbox(t, payment.NewFake())
		obs := tb.Execute(ctx, Call{})
		require.True(t, obs.Failed())
		assert.Equal(t, airline.CodeUnknownTool, obs.Failure.Code)
	})
}

func TestNewToolbox_RequiresPurchaser(t *testing.T) {
	_, err := NewToolbox(nil, nil, nil)
	assert.Error(t, err)
}
