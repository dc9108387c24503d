package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCombatant(t *testing.T) {
	entry, err := parseCombatant("char-1:Aria:18:alice")
	require.NoError(t, err)
	assert.Equal(t, "char-1", entry.CharacterID)
	assert.Equal(t, "Aria", entry.DisplayName)
	assert.Equal(t, 18, entry.InitiativeScore)
	assert.Equal(t, "alice", entry.ControllingPlayerID)
	assert.False(t, entry.IsNPC)

	npc, err := parseCombatant("gob-1:Goblin:-1")
	require.NoError(t, err)
	assert.True(t, npc.IsNPC)
	assert.Equal(t, -1, npc.InitiativeScore)

	_, err = parseCombatant("gob-1:Goblin")
	assert.Error(t, err)

	_, err = parseCombatant("gob-1:Goblin:fast")
	assert.Error(t, err)
}
