// internal/game/presets.go
package game

import "sync"

// Default timer settings, in seconds.
const (
	DefaultQueueSec = 120
	DefaultLobbySec = 60
	DefaultTurnSec  = 10
)

// PublicPreset builds the default configuration for a scheduler-created
// public lobby. The map rotates through the public playlist.
func PublicPreset() GameConfig {
	return GameConfig{
		GameMap:    publicPlaylist.next(),
		GameMode:   ModeFFA,
		GameType:   TypePublic,
		QueueSec:   DefaultQueueSec,
		LobbySec:   DefaultLobbySec,
		TurnSec:    DefaultTurnSec,
		Fog:        FogNormal,
		MaxPlayers: 50,
		BotCount:   400,
	}
}

// RankedPreset builds the default configuration for a scheduler-created
// ranked lobby: a random canonical map, the full ranked pool, and a fixed
// roster size. Fails only if the ranked pool is empty, which is a
// configuration defect.
func RankedPreset() (GameConfig, error) {
	m, err := RandomMap(RankedMapPool)
	if err != nil {
		return GameConfig{}, err
	}
	pool := make([]GameMap, len(RankedMapPool))
	copy(pool, RankedMapPool)
	return GameConfig{
		GameMap:     m,
		MapPool:     pool,
		GameMode:    ModeFFA,
		GameType:    TypeRanked,
		QueueSec:    DefaultQueueSec,
		LobbySec:    DefaultLobbySec,
		TurnSec:     DefaultTurnSec,
		Fog:         FogNormal,
		MaxPlayers:  10,
		DisableNPCs: true,
	}, nil
}

// playlist cycles through a fixed map rotation so successive public lobbies
// vary without repeating until the list wraps.
type playlist struct {
	mu   sync.Mutex
	maps []GameMap
	idx  int
}

func (p *playlist) next() GameMap {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.maps[p.idx%len(p.maps)]
	p.idx++
	return m
}

var publicPlaylist = &playlist{
	maps: []GameMap{
		MapWorld,
		MapEurope,
		MapPangaea,
		MapAsia,
		MapAfrica,
		MapNorthAmerica,
		MapBlackSea,
		MapSouthAmerica,
		MapOceania,
	},
}
