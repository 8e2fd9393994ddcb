package engine

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Reason identifies why a command was refused by the state machine.
type Reason string

const (
	ReasonSlotFull            Reason = "SlotFull"
	ReasonPlayerNotFound      Reason = "PlayerNotFound"
	ReasonInvalidPhase        Reason = "InvalidPhase"
	ReasonNotYourTurn         Reason = "NotYourTurn"
	ReasonPlayerNotIdentified Reason = "PlayerNotIdentified"
	ReasonAlreadySelected     Reason = "AlreadySelected"
	ReasonChampionUnavailable Reason = "ChampionUnavailable"
)

// Rejection is a legal outcome of Apply: the command was understood but is not
// allowed against the current draft. It is never an infrastructure failure.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string { return r.Message }

var (
	ErrSlotFull            = &Rejection{ReasonSlotFull, "draft instance is full"}
	ErrPlayerNotFound      = &Rejection{ReasonPlayerNotFound, "player not found in draft"}
	ErrInvalidPhase        = &Rejection{ReasonInvalidPhase, "draft is not accepting selections"}
	ErrNotYourTurn         = &Rejection{ReasonNotYourTurn, "not your turn"}
	ErrPlayerNotIdentified = &Rejection{ReasonPlayerNotIdentified, "player not identified"}
	ErrAlreadySelected     = &Rejection{ReasonAlreadySelected, "champion already selected"}
	ErrChampionUnavailable = &Rejection{ReasonChampionUnavailable, "champion is not available in this draft"}
)

var ErrUnsupportedCommand = errors.New("unsupported command")

// IsRejection reports whether err is (or wraps) a state machine rejection.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

type Team string

const (
	TeamBlue Team = "blue"
	TeamRed  Team = "red"
)

type Action string

const (
	ActionBan  Action = "ban"
	ActionPick Action = "pick"
)

type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseReadyCheck Phase = "ready_check"
	PhaseBan        Phase = "ban"
	PhasePick       Phase = "pick"
	PhaseDone       Phase = "complete"
)

const (
	PhaseIndexWaiting    = -2
	PhaseIndexReadyCheck = -1
)

type TurnStep struct {
	ID     string
	Team   Team
	Action Action
}

type ChampionImage struct {
	Full string `json:"full"`
}

type Champion struct {
	ID    string        `json:"id"`
	Key   string        `json:"key"`
	Name  string        `json:"name"`
	Title string        `json:"title"`
	Image ChampionImage `json:"image"`
}

type Participant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsReady bool   `json:"isReady"`
}

type DraftTeam struct {
	Player *Participant `json:"player,omitempty"`
	Bans   []Champion   `json:"bans"`
	Picks  []Champion   `json:"picks"`
}

type Draft struct {
	ID                 string     `json:"id"`
	HostPlayerID       string     `json:"hostPlayerId"`
	BlueTeam           DraftTeam  `json:"blueTeam"`
	RedTeam            DraftTeam  `json:"redTeam"`
	CurrentPhaseIndex  int        `json:"currentPhaseIndex"`
	AvailableChampions []Champion `json:"availableChampions"`
	AllChampions       []Champion `json:"allChampions"`
	CatalogVersion     string     `json:"catalogVersion,omitempty"`
	Version            int64      `json:"version"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type CommandType string

const (
	CmdJoin     CommandType = "Join"
	CmdSetReady CommandType = "SetReady"
	CmdSelect   CommandType = "Select"
)

/*
	CmdJoin     -> EvtPlayerJoined | EvtPlayerRejoined | EvtHostRejoined
	CmdSetReady -> EvtReadyChanged -> EvtDraftStarted (when both sides are ready)
	CmdSelect   -> EvtChampionBanned | EvtChampionPicked -> EvtTurnAdvanced -> EvtDraftCompleted
*/

type Command struct {
	Type     CommandType
	ActorID  string
	Name     string
	Ready    bool
	Champion Champion
	At       time.Time
}

type EventType string

const (
	EvtPlayerJoined   EventType = "PlayerJoined"
	EvtPlayerRejoined EventType = "PlayerRejoined"
	EvtHostRejoined   EventType = "HostRejoined"
	EvtReadyChanged   EventType = "ReadyChanged"
	EvtDraftStarted   EventType = "DraftStarted"
	EvtChampionBanned EventType = "ChampionBanned"
	EvtChampionPicked EventType = "ChampionPicked"
	EvtTurnAdvanced   EventType = "TurnAdvanced"
	EvtDraftCompleted EventType = "DraftCompleted"
)

type Event struct {
	Type     EventType
	Team     Team
	PlayerID string
	Name     string
	Ready    bool
	Champion Champion
	At       time.Time
}

// Apply runs cmd against d. The input draft is never modified; on error the
// returned draft is d itself.
func Apply(d Draft, cmd Command) ([]Event, Draft, error) {
	switch cmd.Type {
	case CmdJoin:
		return applyJoin(d, cmd)
	case CmdSetReady:
		return applySetReady(d, cmd)
	case CmdSelect:
		return applySelect(d, cmd)
	default:
		return nil, d, fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.Type)
	}
}

func applyJoin(d Draft, cmd Command) ([]Event, Draft, error) {
	if red := d.RedTeam.Player; red != nil {
		if red.ID == cmd.ActorID {
			return []Event{{Type: EvtPlayerRejoined, Team: TeamRed, PlayerID: cmd.ActorID}}, d, nil
		}
		return nil, d, ErrSlotFull
	}

	if cmd.ActorID == d.HostPlayerID {
		return []Event{{Type: EvtHostRejoined, Team: TeamBlue, PlayerID: cmd.ActorID}}, d, nil
	}

	name := cmd.Name
	if name == "" {
		name = DefaultRedName
	}

	newState := d.Clone()
	newState.RedTeam.Player = &Participant{ID: cmd.ActorID, Name: name}
	newState.CurrentPhaseIndex = PhaseIndexReadyCheck
	newState.UpdatedAt = cmd.At

	events := []Event{{Type: EvtPlayerJoined, Team: TeamRed, PlayerID: cmd.ActorID, Name: name, At: cmd.At}}
	return events, newState, nil
}

func applySetReady(d Draft, cmd Command) ([]Event, Draft, error) {
	team, ok := SideOf(d, cmd.ActorID)
	if !ok {
		return nil, d, ErrPlayerNotFound
	}

	newState := d.Clone()
	newState.team(team).Player.IsReady = cmd.Ready
	newState.UpdatedAt = cmd.At

	events := []Event{{Type: EvtReadyChanged, Team: team, PlayerID: cmd.ActorID, Ready: cmd.Ready, At: cmd.At}}

	// Un-readying after the draft started is recorded but never rolls the phase back.
	if bothReady(newState) && newState.CurrentPhaseIndex == PhaseIndexReadyCheck {
		newState.CurrentPhaseIndex = 0
		events = append(events, Event{Type: EvtDraftStarted, At: cmd.At})
	}
	return events, newState, nil
}

func applySelect(d Draft, cmd Command) ([]Event, Draft, error) {
	step, ok := CurrentStep(d)
	if !ok {
		return nil, d, ErrInvalidPhase
	}

	team, ok := SideOf(d, cmd.ActorID)
	if !ok {
		return nil, d, ErrPlayerNotIdentified
	}
	if team != step.Team {
		return nil, d, ErrNotYourTurn
	}

	id := cmd.Champion.ID
	if isSelected(d, id) {
		return nil, d, ErrAlreadySelected
	}
	// The stored catalog entry wins over whatever the caller sent along.
	idx := slices.IndexFunc(d.AvailableChampions, func(c Champion) bool { return c.ID == id })
	if idx < 0 {
		return nil, d, ErrChampionUnavailable
	}
	champ := d.AvailableChampions[idx]

	newState := d.Clone()
	t := newState.team(team)

	var events []Event
	switch step.Action {
	case ActionBan:
		t.Bans = append(t.Bans, champ)
		events = append(events, Event{Type: EvtChampionBanned, Team: team, PlayerID: cmd.ActorID, Champion: champ, At: cmd.At})
	case ActionPick:
		t.Picks = append(t.Picks, champ)
		events = append(events, Event{Type: EvtChampionPicked, Team: team, PlayerID: cmd.ActorID, Champion: champ, At: cmd.At})
	}

	newState.AvailableChampions = slices.DeleteFunc(newState.AvailableChampions, func(c Champion) bool {
		return c.ID == id
	})
	newState.CurrentPhaseIndex++
	newState.UpdatedAt = cmd.At
	events = append(events, Event{Type: EvtTurnAdvanced, At: cmd.At})

	if newState.CurrentPhaseIndex == len(TurnOrder) {
		events = append(events, Event{Type: EvtDraftCompleted, At: cmd.At})
	}
	return events, newState, nil
}

// Reduce replays events on top of initial. Replaying the events returned by a
// sequence of Apply calls yields the same draft those calls produced. The
// server persists state rather than events, so only tests replay.
func Reduce(initial Draft, events []Event) Draft {
	s := initial.Clone()
	for _, event := range events {
		switch event.Type {
		case EvtPlayerJoined:
			s.RedTeam.Player = &Participant{ID: event.PlayerID, Name: event.Name}
			s.CurrentPhaseIndex = PhaseIndexReadyCheck
		case EvtReadyChanged:
			s.team(event.Team).Player.IsReady = event.Ready
		case EvtDraftStarted:
			s.CurrentPhaseIndex = 0
		case EvtChampionBanned:
			t := s.team(event.Team)
			t.Bans = append(t.Bans, event.Champion)
			s.AvailableChampions = removeChampion(s.AvailableChampions, event.Champion.ID)
		case EvtChampionPicked:
			t := s.team(event.Team)
			t.Picks = append(t.Picks, event.Champion)
			s.AvailableChampions = removeChampion(s.AvailableChampions, event.Champion.ID)
		case EvtTurnAdvanced:
			s.CurrentPhaseIndex++
		default:
			continue
		}
		s.UpdatedAt = event.At
	}
	return s
}

func removeChampion(list []Champion, id string) []Champion {
	return slices.DeleteFunc(list, func(c Champion) bool { return c.ID == id })
}

func isSelected(d Draft, id string) bool {
	match := func(c Champion) bool { return c.ID == id }
	return slices.ContainsFunc(d.BlueTeam.Bans, match) ||
		slices.ContainsFunc(d.RedTeam.Bans, match) ||
		slices.ContainsFunc(d.BlueTeam.Picks, match) ||
		slices.ContainsFunc(d.RedTeam.Picks, match)
}

func bothReady(d Draft) bool {
	return d.BlueTeam.Player != nil && d.RedTeam.Player != nil &&
		d.BlueTeam.Player.IsReady && d.RedTeam.Player.IsReady
}

func (d *Draft) team(t Team) *DraftTeam {
	if t == TeamRed {
		return &d.RedTeam
	}
	return &d.BlueTeam
}
