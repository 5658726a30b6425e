// internal/game/config_test.go
package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRankedMapRejectedOutsidePool: a ranked gameMap update outside the
// canonical pool is silently ignored and the previous value retained.
func TestRankedMapRejectedOutsidePool(t *testing.T) {
	cfg := rankedTestConfig(10)

	bad := MapAfrica // not in the ranked pool
	outcomes := cfg.Apply(ConfigPatch{GameMap: &bad})

	assert.Equal(t, OutcomeRejected, outcomes["gameMap"])
	assert.Equal(t, MapWorld, cfg.GameMap)
	assert.True(t, mapInPool(cfg.GameMap, cfg.MapPool), "invariant: ranked map stays inside its pool")
}

func TestRankedMapAcceptedInsidePool(t *testing.T) {
	cfg := rankedTestConfig(10)

	good := MapEurope
	outcomes := cfg.Apply(ConfigPatch{GameMap: &good})

	assert.Equal(t, OutcomeAccepted, outcomes["gameMap"])
	assert.Equal(t, MapEurope, cfg.GameMap)
}

// TestRankedMapPoolFiltered: a submitted pool is filtered to canonical
// members, order preserved.
func TestRankedMapPoolFiltered(t *testing.T) {
	cfg := rankedTestConfig(10)

	outcomes := cfg.Apply(ConfigPatch{MapPool: []GameMap{MapWorld, MapEurope, MapAfrica}})

	assert.Equal(t, OutcomeFiltered, outcomes["mapPool"])
	assert.Equal(t, []GameMap{MapWorld, MapEurope}, cfg.MapPool)
}

func TestNonRankedUpdatesUnrestricted(t *testing.T) {
	cfg := PublicPreset()

	m := MapOceania
	outcomes := cfg.Apply(ConfigPatch{
		GameMap: &m,
		MapPool: []GameMap{MapOceania, MapAfrica},
	})

	assert.Equal(t, OutcomeAccepted, outcomes["gameMap"])
	assert.Equal(t, OutcomeAccepted, outcomes["mapPool"])
	assert.Equal(t, MapOceania, cfg.GameMap)
	assert.Equal(t, []GameMap{MapOceania, MapAfrica}, cfg.MapPool)
}

func TestApplyPlainFields(t *testing.T) {
	cfg := PublicPreset()

	turn := 30
	fog := FogDisabled
	infinite := true
	outcomes := cfg.Apply(ConfigPatch{
		TurnSec:       &turn,
		Fog:           &fog,
		InfiniteGold:  &infinite,
		DisabledUnits: []string{"nuke"},
	})

	assert.Len(t, outcomes, 4)
	assert.Equal(t, 30, cfg.TurnSec)
	assert.Equal(t, FogDisabled, cfg.Fog)
	assert.True(t, cfg.InfiniteGold)
	assert.Equal(t, []string{"nuke"}, cfg.DisabledUnits)
}

func TestEmptyPatchIsNoOp(t *testing.T) {
	cfg := rankedTestConfig(10)
	before := cfg

	outcomes := cfg.Apply(ConfigPatch{})
	assert.Empty(t, outcomes)
	assert.Equal(t, before.GameMap, cfg.GameMap)
	assert.Equal(t, before.MapPool, cfg.MapPool)
}

func TestValidateRankedInvariants(t *testing.T) {
	cfg := rankedTestConfig(10)
	require.NoError(t, cfg.Validate())

	cfg.MapPool = nil
	assert.Error(t, cfg.Validate(), "ranked requires a non-empty map pool")

	cfg = rankedTestConfig(10)
	cfg.GameMap = MapAfrica
	assert.Error(t, cfg.Validate(), "ranked map must be a pool member")
}

func TestValidateTeamMode(t *testing.T) {
	cfg := PublicPreset()
	cfg.GameMode = ModeTeam
	assert.Error(t, cfg.Validate(), "team mode requires a policy")

	cfg.TeamPolicy = TeamPolicy{Fixed: 1}
	assert.Error(t, cfg.Validate(), "one team at capacity is invalid")

	cfg.TeamPolicy = TeamPolicy{Name: PolicyDuos}
	assert.NoError(t, cfg.Validate())
}

// TestTeamPolicyJSON covers both wire forms: bare number and bare string.
func TestTeamPolicyJSON(t *testing.T) {
	var p TeamPolicy
	require.NoError(t, json.Unmarshal([]byte(`4`), &p))
	assert.Equal(t, TeamPolicy{Fixed: 4}, p)

	require.NoError(t, json.Unmarshal([]byte(`"trios"`), &p))
	assert.Equal(t, TeamPolicy{Name: PolicyTrios}, p)

	out, err := json.Marshal(TeamPolicy{Fixed: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `4`, string(out))

	out, err = json.Marshal(TeamPolicy{Name: PolicyQuads})
	require.NoError(t, err)
	assert.JSONEq(t, `"quads"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"n":2}`), &p))
}

func TestTeamPolicyResolve(t *testing.T) {
	cases := []struct {
		policy TeamPolicy
		total  int
		want   int
	}{
		{TeamPolicy{Name: PolicyDuos}, 10, 5},
		{TeamPolicy{Name: PolicyTrios}, 1, 1},
		{TeamPolicy{Name: PolicyTrios}, 48, 16},
		{TeamPolicy{Name: PolicyQuads}, 9, 3},
		{TeamPolicy{Fixed: 7}, 100, 7},
	}
	for _, tc := range cases {
		got, err := tc.policy.Resolve(tc.total)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := TeamPolicy{Name: "squads"}.Resolve(10)
	assert.Error(t, err)
}
