package types

import "github.com/DoyleJ11/lol-draft-room/internal/engine"

// Draft model as it appears on the wire. These are aliases so that code
// outside this module can name every type carried by Envelope and Snapshot.
type (
	Draft         = engine.Draft
	DraftTeam     = engine.DraftTeam
	Participant   = engine.Participant
	Champion      = engine.Champion
	ChampionImage = engine.ChampionImage
	Team          = engine.Team
	Action        = engine.Action
	Phase         = engine.Phase
	Reason        = engine.Reason
)

const (
	TeamBlue = engine.TeamBlue
	TeamRed  = engine.TeamRed

	ActionBan  = engine.ActionBan
	ActionPick = engine.ActionPick

	PhaseWaiting    = engine.PhaseWaiting
	PhaseReadyCheck = engine.PhaseReadyCheck
	PhaseBan        = engine.PhaseBan
	PhasePick       = engine.PhasePick
	PhaseDone       = engine.PhaseDone
)

// Rejection reasons sent in Envelope.Code.
const (
	ReasonSlotFull            = engine.ReasonSlotFull
	ReasonPlayerNotFound      = engine.ReasonPlayerNotFound
	ReasonInvalidPhase        = engine.ReasonInvalidPhase
	ReasonNotYourTurn         = engine.ReasonNotYourTurn
	ReasonPlayerNotIdentified = engine.ReasonPlayerNotIdentified
	ReasonAlreadySelected     = engine.ReasonAlreadySelected
	ReasonChampionUnavailable = engine.ReasonChampionUnavailable
)
