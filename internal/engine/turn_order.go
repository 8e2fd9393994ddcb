package engine

// TurnOrder is the fixed ban/pick sequence. The owning side of every slot is
// data, never computed.
var TurnOrder = []TurnStep{
	// Ban Phase
	{ID: "blue_ban_1", Team: TeamBlue, Action: ActionBan},
	{ID: "red_ban_1", Team: TeamRed, Action: ActionBan},
	{ID: "blue_ban_2", Team: TeamBlue, Action: ActionBan},
	{ID: "red_ban_2", Team: TeamRed, Action: ActionBan},
	{ID: "blue_ban_3", Team: TeamBlue, Action: ActionBan},
	{ID: "red_ban_3", Team: TeamRed, Action: ActionBan},
	// Pick Phase
	{ID: "blue_pick_1", Team: TeamBlue, Action: ActionPick},
	{ID: "red_pick_1", Team: TeamRed, Action: ActionPick},
	{ID: "red_pick_2", Team: TeamRed, Action: ActionPick},
	{ID: "blue_pick_2", Team: TeamBlue, Action: ActionPick},
	{ID: "blue_pick_3", Team: TeamBlue, Action: ActionPick},
	{ID: "red_pick_3", Team: TeamRed, Action: ActionPick},
	{ID: "red_pick_4", Team: TeamRed, Action: ActionPick},
	{ID: "blue_pick_4", Team: TeamBlue, Action: ActionPick},
	{ID: "blue_pick_5", Team: TeamBlue, Action: ActionPick},
	{ID: "red_pick_5", Team: TeamRed, Action: ActionPick},
}

const (
	MaxBansPerTeam  = 3
	MaxPicksPerTeam = 5
)
