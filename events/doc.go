// Package events describes what happens inside a conversation in a form that can be published
// to subscribers, in process or over NATS.
//
// Event types:
//   - Turn: a turn was appended to the transcript
//   - StateChange: the conversation moved to another state
//   - Error: a driver hit an infrastructure error while advancing the conversation
//
// Every event carries the conversation id and a timestamp. On the wire an event is a JSON
// object with a "type" field naming its kind; ToJSON and FromJSON convert between the two.
//
//	data, _ := events.ToJSON(events.Turn{ConversationID: id, Turn: turn})
//	event, err := events.FromJSON(data)
//	switch e := event.(type) {
//	case events.Turn:
//	case events.StateChange:
//	case events.Error:
//	}
package events
