package session

import (
	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/transcript"
)

// Welcome greets new users.
const Welcome = "Welcome to LA Travels! 👋\n\n" +
	"I'm your dedicated airline agent, specializing in travel to and from the Los Angeles area. " +
	"To get started, please provide your destination city along with your preferred departure and " +
	"return dates. I'll find you the best routes and prices available."

// RenderTurn renders one turn for a user. It returns false for turns users do not see as a
// reply: plans and their own messages.
func RenderTurn(turn transcript.Turn) (string, bool) {
	switch turn.Kind {
	case transcript.KindPlan:
		return "", false
	case transcript.KindFailure:
		if turn.Failure == nil {
			return "", false
		}
		return turn.Failure.Message, true
	case transcript.KindObservation:
		obs := turn.Observation
		switch {
		case obs == nil:
			return "", false
		case obs.Failure != nil:
			return obs.Failure.Message, true
		case obs.Booking != nil:
			return airline.DescribeBooking(*obs.Booking), true
		default:
			return airline.DescribeFlights(obs.Flights), true
		}
	case transcript.KindMessage:
		if turn.Actor != transcript.ActorAssistant {
			return "", false
		}
		return turn.Text, true
	default:
		return "", false
	}
}

// Render returns the reply for a history: the newest turn RenderTurn accepts.
func Render(history []transcript.Turn) (transcript.Turn, string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if text, ok := RenderTurn(history[i]); ok {
			return history[i], text, true
		}
	}
	return transcript.Turn{}, "", false
}
