// internal/game/teams.go
package game

import "fmt"

// TooFewTeamsError reports that a team-mode configuration resolves to fewer
// than two teams. The lobby must not be offered until the roster grows or
// the config changes.
type TooFewTeamsError struct {
	Teams int
}

func (e *TooFewTeamsError) Error() string {
	return fmt.Sprintf("team setup resolves to %d team(s), need at least 2", e.Teams)
}

// EnsureValidTeamSetup decides whether a valid team partition exists for the
// session. It sizes the pool pessimistically in neither direction: the
// larger of the players present right now and the players the config allows
// at full capacity, NPC nations included unless disabled.
//
// A no-op for non-team modes. An unrecognized team policy is a
// configuration defect and is returned as a plain error rather than a
// TooFewTeamsError.
func EnsureValidTeamSetup(cfg GameConfig, terrain TerrainInfo, humanCount int, disableNPCs bool) error {
	if cfg.GameMode != ModeTeam {
		return nil
	}

	npcCount := 0
	if !disableNPCs {
		npcCount = terrain.Nations
	}
	actualPlayers := humanCount + npcCount

	configuredMax := cfg.MaxPlayers
	if configuredMax == 0 {
		configuredMax = humanCount
	}
	configuredTotal := configuredMax + npcCount

	totalPlayers := actualPlayers
	if configuredTotal > totalPlayers {
		totalPlayers = configuredTotal
	}

	teams, err := cfg.TeamPolicy.Resolve(totalPlayers)
	if err != nil {
		return err
	}
	if teams < 2 {
		return &TooFewTeamsError{Teams: teams}
	}
	return nil
}
