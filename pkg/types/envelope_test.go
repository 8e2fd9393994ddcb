package types_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/lol-draft-room/pkg/types"
)

// Consumers outside the module only import pkg/types, so every type an
// Envelope carries has to be nameable from here.
func TestEnvelope_DecodesWithPublicNames(t *testing.T) {
	raw := `{
	  "success": true,
	  "draftId": "ABC123",
	  "draftInstance": {
	    "id": "ABC123",
	    "version": 4,
	    "currentPhaseIndex": 1,
	    "blueTeam": {"player": {"id": "host", "name": "Blue"}, "bans": [{"id": "Ahri", "name": "Ahri"}]}
	  },
	  "snapshot": {"version": 4, "draftId": "ABC123", "phase": "ban", "activeTurnIndex": 1, "activeTeam": "red", "activeAction": "ban", "turnsRemaining": 15, "bluePlayer": {"id": "host", "name": "Blue"}}
	}`

	var env types.Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))

	var d *types.Draft = env.DraftInstance
	require.NotNil(t, d)
	var blue *types.Participant = d.BlueTeam.Player
	require.NotNil(t, blue)
	assert.Equal(t, "Blue", blue.Name)
	assert.Equal(t, []types.Champion{{ID: "Ahri", Name: "Ahri"}}, d.BlueTeam.Bans)

	require.NotNil(t, env.Snapshot)
	assert.Equal(t, types.PhaseBan, env.Snapshot.Phase)
	assert.Equal(t, types.TeamRed, env.Snapshot.ActiveTeam)
	assert.Equal(t, types.ActionBan, env.Snapshot.ActiveAction)

	s := types.NewSnapshot(*d)
	assert.Equal(t, *env.Snapshot, s)
}

func TestEnvelope_RejectionCode(t *testing.T) {
	var env types.Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"success":false,"message":"not your turn","code":"NotYourTurn"}`), &env))
	assert.Equal(t, types.ReasonNotYourTurn, types.Reason(env.Code))
}
