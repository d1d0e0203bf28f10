package conversation

import (
	"fmt"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/tool"
	"github.com/casualjim/latravels/transcript"
)

// Snapshot is the serializable state of a Machine.
type Snapshot struct {
	State      State                 `json:"state"`
	Transcript transcript.Checkpoint `json:"transcript"`
	Offers     []airline.Flight      `json:"offers"`
	Pending    *tool.Call            `json:"pending,omitempty"`
	FollowUp   bool                  `json:"follow_up,omitempty"`
}

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		State:      m.state,
		Transcript: m.transcript.Checkpoint(),
		Offers:     m.Offers(),
		FollowUp:   m.followUp,
	}
	if m.pending != nil {
		call := *m.pending
		s.Pending = &call
	}
	return s
}

// Restore rebuilds a Machine from a snapshot.
func Restore(s Snapshot, now transcript.Clock) (*Machine, error) {
	switch s.State {
	case AwaitingUserInput, Planning, Completed:
	case ExecutingTool:
		if s.Pending == nil {
			return nil, fmt.Errorf("snapshot in %s without a pending call", s.State)
		}
	default:
		return nil, fmt.Errorf("cannot restore a conversation in state %q", s.State)
	}

	m := &Machine{
		id:         s.Transcript.ID(),
		state:      s.State,
		transcript: s.Transcript.Restore(now),
		offers:     make(map[int]airline.Flight, len(s.Offers)),
		followUp:   s.FollowUp,
	}
	for _, f := range s.Offers {
		m.offers[f.ID] = f
	}
	if s.Pending != nil {
		call := *s.Pending
		m.pending = &call
	}
	return m, nil
}
