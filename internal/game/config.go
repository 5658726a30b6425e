// internal/game/config.go
package game

import (
	"encoding/json"
	"fmt"
)

// GameMode distinguishes free-for-all from team play.
type GameMode string

const (
	ModeFFA  GameMode = "ffa"
	ModeTeam GameMode = "team"
)

// GameType classifies who a session is offered to and how it is scheduled.
type GameType string

const (
	TypePublic  GameType = "public"
	TypeRanked  GameType = "ranked"
	TypePrivate GameType = "private"
)

// FogRule controls fog-of-war behavior for a session.
type FogRule string

const (
	FogNormal   FogRule = "normal"
	FogExplored FogRule = "explored"
	FogDisabled FogRule = "disabled"
)

// Named team-count policies. A TeamPolicy is either one of these or a
// literal team count.
const (
	PolicyDuos  = "duos"
	PolicyTrios = "trios"
	PolicyQuads = "quads"
)

// TeamPolicy is either a fixed team count (Fixed > 0) or a named grouping
// policy that derives the count from the player total. On the wire it is a
// bare number or a bare string, matching the client config shape.
type TeamPolicy struct {
	Name  string
	Fixed int
}

// IsZero reports whether no policy was set.
func (p TeamPolicy) IsZero() bool { return p.Name == "" && p.Fixed == 0 }

// Resolve computes the team count for totalPlayers. Named policies divide
// the total by their group size, rounding up. An unknown name is a
// configuration defect.
func (p TeamPolicy) Resolve(totalPlayers int) (int, error) {
	if p.Fixed > 0 {
		return p.Fixed, nil
	}
	var groupSize int
	switch p.Name {
	case PolicyDuos:
		groupSize = 2
	case PolicyTrios:
		groupSize = 3
	case PolicyQuads:
		groupSize = 4
	default:
		return 0, fmt.Errorf("unknown team policy %q", p.Name)
	}
	return (totalPlayers + groupSize - 1) / groupSize, nil
}

// MarshalJSON emits a number for fixed policies and a string for named ones.
func (p TeamPolicy) MarshalJSON() ([]byte, error) {
	if p.Fixed > 0 {
		return json.Marshal(p.Fixed)
	}
	return json.Marshal(p.Name)
}

// UnmarshalJSON accepts either form.
func (p *TeamPolicy) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = TeamPolicy{Fixed: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("team policy must be a number or a string: %w", err)
	}
	*p = TeamPolicy{Name: s}
	return nil
}

// GameConfig is the declarative ruleset for one session. It is applied at
// creation and afterwards only mutable through ApplyPatch, which enforces
// the per-type update policy.
type GameConfig struct {
	GameMap       GameMap    `json:"gameMap"`
	MapPool       []GameMap  `json:"mapPool,omitempty"`
	GameMode      GameMode   `json:"gameMode"`
	GameType      GameType   `json:"gameType"`
	TeamPolicy    TeamPolicy `json:"teamCount,omitempty"`
	QueueSec      int        `json:"queueSec"`
	LobbySec      int        `json:"lobbySec"`
	TurnSec       int        `json:"turnSec"`
	Fog           FogRule    `json:"fog"`
	MaxPlayers    int        `json:"maxPlayers,omitempty"` // 0 = uncapped
	BotCount      int        `json:"botCount"`
	DisableNPCs   bool       `json:"disableNPCs"`
	InfiniteGold  bool       `json:"infiniteGold"`
	InfiniteTroop bool       `json:"infiniteTroops"`
	InstantBuild  bool       `json:"instantBuild"`
	DisabledUnits []string   `json:"disabledUnits,omitempty"`
}

// Validate checks the invariants a config must satisfy before a session is
// offered to players.
func (c *GameConfig) Validate() error {
	switch c.GameType {
	case TypePublic, TypeRanked, TypePrivate:
	default:
		return fmt.Errorf("unknown game type %q", c.GameType)
	}
	if c.GameType == TypeRanked {
		if len(c.MapPool) == 0 {
			return fmt.Errorf("ranked config requires a non-empty map pool")
		}
		if !mapInPool(c.GameMap, c.MapPool) {
			return fmt.Errorf("ranked map %q is not in the map pool", c.GameMap)
		}
	}
	if c.GameMode == ModeTeam {
		if c.TeamPolicy.IsZero() {
			return fmt.Errorf("team mode requires a team policy")
		}
		if c.MaxPlayers > 0 {
			teams, err := c.TeamPolicy.Resolve(c.MaxPlayers)
			if err != nil {
				return err
			}
			if teams < 2 {
				return fmt.Errorf("team policy yields %d team(s) at capacity %d", teams, c.MaxPlayers)
			}
		}
	}
	return nil
}

func mapInPool(m GameMap, pool []GameMap) bool {
	for _, pm := range pool {
		if pm == m {
			return true
		}
	}
	return false
}

// ConfigPatch is a partial config update. Nil fields are absent and leave
// the existing values untouched.
type ConfigPatch struct {
	GameMap       *GameMap   `json:"gameMap,omitempty"`
	MapPool       []GameMap  `json:"mapPool,omitempty"`
	TeamPolicy    *TeamPolicy `json:"teamCount,omitempty"`
	QueueSec      *int       `json:"queueSec,omitempty"`
	LobbySec      *int       `json:"lobbySec,omitempty"`
	TurnSec       *int       `json:"turnSec,omitempty"`
	Fog           *FogRule   `json:"fog,omitempty"`
	MaxPlayers    *int       `json:"maxPlayers,omitempty"`
	BotCount      *int       `json:"botCount,omitempty"`
	DisableNPCs   *bool      `json:"disableNPCs,omitempty"`
	InfiniteGold  *bool      `json:"infiniteGold,omitempty"`
	InfiniteTroop *bool      `json:"infiniteTroops,omitempty"`
	InstantBuild  *bool      `json:"instantBuild,omitempty"`
	DisabledUnits []string   `json:"disabledUnits,omitempty"`
}

// PatchOutcome records how one submitted field was handled.
type PatchOutcome string

const (
	// OutcomeAccepted: the submitted value was stored as-is.
	OutcomeAccepted PatchOutcome = "accepted"
	// OutcomeRejected: the submitted value failed the type's policy and the
	// previous value was kept. No error is surfaced; this is a consistency
	// guard, not user-facing validation.
	OutcomeRejected PatchOutcome = "rejected"
	// OutcomeFiltered: a subset of the submitted value was stored.
	OutcomeFiltered PatchOutcome = "filtered"
)

// Apply merges patch into the config under the per-type update policy and
// reports the outcome for each field that was present in the patch.
//
// Ranked sessions sanitize map changes against RankedMapPool: a gameMap
// outside the canonical pool is rejected (previous value kept), and a
// submitted mapPool is filtered to canonical members, order preserved.
// Every other field, and every field for non-ranked types, overwrites.
func (c *GameConfig) Apply(patch ConfigPatch) map[string]PatchOutcome {
	outcomes := make(map[string]PatchOutcome)

	if patch.GameMap != nil {
		if c.GameType == TypeRanked && !inRankedPool(*patch.GameMap) {
			outcomes["gameMap"] = OutcomeRejected
		} else {
			c.GameMap = *patch.GameMap
			outcomes["gameMap"] = OutcomeAccepted
		}
	}
	if patch.MapPool != nil {
		if c.GameType == TypeRanked {
			filtered := make([]GameMap, 0, len(patch.MapPool))
			for _, m := range patch.MapPool {
				if inRankedPool(m) {
					filtered = append(filtered, m)
				}
			}
			c.MapPool = filtered
			if len(filtered) == len(patch.MapPool) {
				outcomes["mapPool"] = OutcomeAccepted
			} else {
				outcomes["mapPool"] = OutcomeFiltered
			}
		} else {
			c.MapPool = patch.MapPool
			outcomes["mapPool"] = OutcomeAccepted
		}
	}
	if patch.TeamPolicy != nil {
		c.TeamPolicy = *patch.TeamPolicy
		outcomes["teamCount"] = OutcomeAccepted
	}
	if patch.QueueSec != nil {
		c.QueueSec = *patch.QueueSec
		outcomes["queueSec"] = OutcomeAccepted
	}
	if patch.LobbySec != nil {
		c.LobbySec = *patch.LobbySec
		outcomes["lobbySec"] = OutcomeAccepted
	}
	if patch.TurnSec != nil {
		c.TurnSec = *patch.TurnSec
		outcomes["turnSec"] = OutcomeAccepted
	}
	if patch.Fog != nil {
		c.Fog = *patch.Fog
		outcomes["fog"] = OutcomeAccepted
	}
	if patch.MaxPlayers != nil {
		c.MaxPlayers = *patch.MaxPlayers
		outcomes["maxPlayers"] = OutcomeAccepted
	}
	if patch.BotCount != nil {
		c.BotCount = *patch.BotCount
		outcomes["botCount"] = OutcomeAccepted
	}
	if patch.DisableNPCs != nil {
		c.DisableNPCs = *patch.DisableNPCs
		outcomes["disableNPCs"] = OutcomeAccepted
	}
	if patch.InfiniteGold != nil {
		c.InfiniteGold = *patch.InfiniteGold
		outcomes["infiniteGold"] = OutcomeAccepted
	}
	if patch.InfiniteTroop != nil {
		c.InfiniteTroop = *patch.InfiniteTroop
		outcomes["infiniteTroops"] = OutcomeAccepted
	}
	if patch.InstantBuild != nil {
		c.InstantBuild = *patch.InstantBuild
		outcomes["instantBuild"] = OutcomeAccepted
	}
	if patch.DisabledUnits != nil {
		c.DisabledUnits = patch.DisabledUnits
		outcomes["disabledUnits"] = OutcomeAccepted
	}
	return outcomes
}
