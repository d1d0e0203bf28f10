package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/pkg/uuidx"
	"github.com/casualjim/latravels/reasoning"
	"github.com/casualjim/latravels/tool"
	"github.com/casualjim/latravels/transcript"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func sampleRequest() reasoning.Request {
	tr := transcript.New(uuidx.New(), nil)
	tr.AddUserMessage("LAX to NYC next friday, back sunday")
	inv := tool.Invocation{ID: "call_1", Name: "find_flights", Arguments: `{"origin":"LAX"}`}
	tr.AddPlan(inv)
	tr.AddObservation(tool.Observation{Kind: tool.KindSearch, InvocationID: "call_1", Flights: []airline.Flight{{ID: 1, Price: 30000, Currency: "USD"}}})
	tr.AddAssistantMessage("Flight 1 costs $300.00")
	tr.AddFailure(transcript.ActorAssistant, nil, airline.ReasoningTimeoutFailure())
	return reasoning.Request{
		Instructions: "Test instructions",
		Transcript:   tr.Turns(),
		Catalog:      tool.Catalog(),
	}
}

func setupTestServer(t *testing.T, handler http.HandlerFunc) *Reasoner {
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
	})

	return New("", option.WithBaseURL(server.URL+"/v1"), option.WithAPIKey("test"), option.WithMaxRetries(0))
}

func TestNew(t *testing.T) {
	r := New("")
	assert.NotNil(t, r.client)
	assert.Equal(t, DefaultModel, r.model)
	assert.Equal(t, "gpt-4o", New("gpt-4o").model)
}

func TestReasoner_buildRequest(t *testing.T) {
	r := New("gpt-4o-mini")
	req := sampleRequest()
	params, err := r.buildRequest(&req)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", string(params.Model.Value))
	assert.Equal(t, int64(1), params.N.Value)
	assert.False(t, params.ParallelToolCalls.Value)

	msgs := params.Messages.Value
	require.Len(t, msgs, 5) // system, user, tool call, tool result, assistant; the timeout is dropped

	systemMsg := msgs[0].(openai.ChatCompletionSystemMessageParam)
	assert.Equal(t, "Test instructions", systemMsg.Content.Value[0].Text.Value)

	userMsg := msgs[1].(openai.ChatCompletionUserMessageParam)
	assert.Equal(t, "LAX to NYC next friday, back sunday", userMsg.Content.Value[0].(openai.ChatCompletionContentPartTextParam).Text.Value)

	callMsg := msgs[2].(openai.ChatCompletionMessageParam)
	calls := callMsg.ToolCalls.Value.([]openai.ChatCompletionMessageToolCallParam)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID.Value)
	assert.Equal(t, "find_flights", calls[0].Function.Value.Name.Value)

	toolMsg := msgs[3].(openai.ChatCompletionToolMessageParam)
	assert.Equal(t, "call_1", toolMsg.ToolCallID.Value)

	tools := params.Tools.Value
	require.Len(t, tools, 2)
	assert.Equal(t, "find_flights", tools[0].Function.Value.Name.Value)
	assert.Equal(t, "book_flight", tools[1].Function.Value.Name.Value)
	assert.NotNil(t, tools[0].Function.Value.Parameters.Value)
}

func TestReasoner_DecideReply(t *testing.T) {
	r := setupTestServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.True(t, strings.HasSuffix(req.URL.Path, "/chat/completions"), req.URL.Path)

		body, err := io.ReadAll(req.Body)
		assert.NoError(t, err)
		assert.Equal(t, "Test instructions", gjson.GetBytes(body, "messages.0.content.0.text").String())
		assert.Equal(t, int64(2), gjson.GetBytes(body, "tools.#").Int())

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletion{
			ID:      "test-id",
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "Which flight would you like?"}}},
		})
	})

	d, err := r.Decide(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, reasoning.Reply("Which flight would you like?"), d)
}

func TestReasoner_DecideToolCall(t *testing.T) {
	r := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletion{
			ID: "test-id",
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{
					{ID: "call_2", Type: openai.ChatCompletionMessageToolCallTypeFunction, Function: openai.ChatCompletionMessageToolCallFunction{Name: "book_flight", Arguments: `{"flight_id":"1","price":"300.00"}`}},
					{ID: "call_3", Type: openai.ChatCompletionMessageToolCallTypeFunction, Function: openai.ChatCompletionMessageToolCallFunction{Name: "find_flights", Arguments: `{}`}},
				},
			}}},
		})
	})

	d, err := r.Decide(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, reasoning.Invoke("call_2", "book_flight", `{"flight_id":"1","price":"300.00"}`), d)
}

func TestReasoner_DecideErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		r := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openai.ChatCompletion{ID: "test-id"})
		})
		_, err := r.Decide(context.Background(), sampleRequest())
		require.ErrorIs(t, err, reasoning.ErrNoDecision)
	})

	t.Run("server error", func(t *testing.T) {
		r := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := r.Decide(context.Background(), sampleRequest())
		require.Error(t, err)
	})
}
