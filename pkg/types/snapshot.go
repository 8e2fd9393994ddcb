package types

import "github.com/DoyleJ11/lol-draft-room/internal/engine"

// Snapshot is the derived view a client renders from: whose turn it is and
// what they are doing, without re-implementing the turn order.
type Snapshot struct {
	Version         int64        `json:"version"`
	DraftID         string       `json:"draftId"`
	Phase           Phase        `json:"phase"`
	ActiveTurnIndex int          `json:"activeTurnIndex"`
	ActiveTeam      Team         `json:"activeTeam,omitempty"`
	ActiveAction    Action       `json:"activeAction,omitempty"`
	TurnsRemaining  int          `json:"turnsRemaining"`
	BluePlayer      *Participant `json:"bluePlayer,omitempty"`
	RedPlayer       *Participant `json:"redPlayer,omitempty"`
}

func NewSnapshot(d Draft) Snapshot {
	s := Snapshot{
		Version:         d.Version,
		DraftID:         d.ID,
		Phase:           engine.DerivePhase(d.CurrentPhaseIndex),
		ActiveTurnIndex: d.CurrentPhaseIndex,
		BluePlayer:      d.BlueTeam.Player,
		RedPlayer:       d.RedTeam.Player,
	}
	if step, ok := engine.CurrentStep(d); ok {
		s.ActiveTeam = step.Team
		s.ActiveAction = step.Action
	}
	switch {
	case d.CurrentPhaseIndex < 0:
		s.TurnsRemaining = len(engine.TurnOrder)
	case d.IsComplete():
		s.TurnsRemaining = 0
	default:
		s.TurnsRemaining = len(engine.TurnOrder) - d.CurrentPhaseIndex
	}
	return s
}
