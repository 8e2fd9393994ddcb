package engine

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	DefaultBlueName = "Blue Player"
	DefaultRedName  = "Red Player"
)

// NewDraft builds a draft waiting for its second player. The catalog slice is
// copied twice so available and all never share a backing array.
func NewDraft(id, hostID, hostName string, catalog []Champion, catalogVersion string, now time.Time) Draft {
	if hostName == "" {
		hostName = DefaultBlueName
	}
	return Draft{
		ID:           NormalizeID(id),
		HostPlayerID: hostID,
		BlueTeam: DraftTeam{
			Player: &Participant{ID: hostID, Name: hostName},
			Bans:   []Champion{},
			Picks:  []Champion{},
		},
		RedTeam: DraftTeam{
			Bans:  []Champion{},
			Picks: []Champion{},
		},
		CurrentPhaseIndex:  PhaseIndexWaiting,
		AvailableChampions: append([]Champion{}, catalog...),
		AllChampions:       append([]Champion{}, catalog...),
		CatalogVersion:     catalogVersion,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// NormalizeID upper-cases a draft code and trims surrounding space.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func (d Draft) Clone() Draft {
	c := d
	c.BlueTeam = d.BlueTeam.clone()
	c.RedTeam = d.RedTeam.clone()
	c.AvailableChampions = slices.Clone(d.AvailableChampions)
	c.AllChampions = slices.Clone(d.AllChampions)
	return c
}

func (t DraftTeam) clone() DraftTeam {
	c := DraftTeam{
		Bans:  slices.Clone(t.Bans),
		Picks: slices.Clone(t.Picks),
	}
	if t.Player != nil {
		p := *t.Player
		c.Player = &p
	}
	return c
}

func DerivePhase(index int) Phase {
	switch {
	case index >= len(TurnOrder):
		return PhaseDone
	case index == PhaseIndexReadyCheck:
		return PhaseReadyCheck
	case index < 0:
		return PhaseWaiting
	default:
		return TurnOrder[index].Action.phase()
	}
}

func (a Action) phase() Phase {
	if a == ActionPick {
		return PhasePick
	}
	return PhaseBan
}

// CurrentStep returns the active turn, or false when the draft is not in the
// drafting range.
func CurrentStep(d Draft) (TurnStep, bool) {
	if d.CurrentPhaseIndex < 0 || d.CurrentPhaseIndex >= len(TurnOrder) {
		return TurnStep{}, false
	}
	return TurnOrder[d.CurrentPhaseIndex], true
}

func SideOf(d Draft, playerID string) (Team, bool) {
	if playerID == "" {
		return "", false
	}
	if p := d.BlueTeam.Player; p != nil && p.ID == playerID {
		return TeamBlue, true
	}
	if p := d.RedTeam.Player; p != nil && p.ID == playerID {
		return TeamRed, true
	}
	return "", false
}

func (d Draft) IsComplete() bool { return d.CurrentPhaseIndex >= len(TurnOrder) }

// CheckInvariants verifies the structural rules every reachable draft obeys.
func CheckInvariants(d Draft) error {
	seen := map[string]string{}
	lists := []struct {
		name string
		list []Champion
		max  int
	}{
		{"blue bans", d.BlueTeam.Bans, MaxBansPerTeam},
		{"red bans", d.RedTeam.Bans, MaxBansPerTeam},
		{"blue picks", d.BlueTeam.Picks, MaxPicksPerTeam},
		{"red picks", d.RedTeam.Picks, MaxPicksPerTeam},
	}
	selected := 0
	for _, l := range lists {
		if len(l.list) > l.max {
			return fmt.Errorf("%s: %d entries, max %d", l.name, len(l.list), l.max)
		}
		for _, c := range l.list {
			if prev, dup := seen[c.ID]; dup {
				return fmt.Errorf("champion %q in both %s and %s", c.ID, prev, l.name)
			}
			seen[c.ID] = l.name
		}
		selected += len(l.list)
	}

	if d.CurrentPhaseIndex >= 0 && selected != min(d.CurrentPhaseIndex, len(TurnOrder)) {
		return fmt.Errorf("phase index %d but %d selections", d.CurrentPhaseIndex, selected)
	}

	want := make([]string, 0, len(d.AllChampions))
	for _, c := range d.AllChampions {
		if _, taken := seen[c.ID]; !taken {
			want = append(want, c.ID)
		}
	}
	got := make([]string, 0, len(d.AvailableChampions))
	for _, c := range d.AvailableChampions {
		got = append(got, c.ID)
	}
	if !slices.Equal(want, got) {
		return fmt.Errorf("available champions out of sync: want %d entries, got %d", len(want), len(got))
	}
	return nil
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Changed reports whether events describe a mutation worth persisting.
// Rejoins acknowledge the caller without touching the draft.
func Changed(events []Event) bool {
	for _, event := range events {
		switch event.Type {
		case EvtHostRejoined, EvtPlayerRejoined:
		default:
			return true
		}
	}
	return false
}
