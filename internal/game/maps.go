// internal/game/maps.go
package game

import (
	"errors"
	"fmt"
	"math/rand"
)

// GameMap identifies one of the shipped terrain maps.
type GameMap string

const (
	MapWorld        GameMap = "World"
	MapEurope       GameMap = "Europe"
	MapAsia         GameMap = "Asia"
	MapNorthAmerica GameMap = "NorthAmerica"
	MapSouthAmerica GameMap = "SouthAmerica"
	MapAfrica       GameMap = "Africa"
	MapPangaea      GameMap = "Pangaea"
	MapOceania      GameMap = "Oceania"
	MapBlackSea     GameMap = "BlackSea"
)

// RankedMapPool is the canonical set of maps eligible for ranked play.
// Ranked config updates are sanitized against this pool (see ApplyPatch).
var RankedMapPool = []GameMap{
	MapWorld,
	MapEurope,
	MapAsia,
	MapNorthAmerica,
	MapSouthAmerica,
	MapPangaea,
}

// ErrEmptyMapPool indicates a random map pick was requested from an empty
// pool. This is a configuration defect, not a runtime condition.
var ErrEmptyMapPool = errors.New("map pool is empty")

// TerrainInfo is the summary the external map loader hands back: the map's
// dimensions, how many tiles are land, and how many NPC nations spawn on it.
type TerrainInfo struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	LandTiles int `json:"landTiles"`
	Nations   int `json:"nations"`
}

// terrainManifest stands in for the binary map loader, which lives outside
// this service. Counts come from the shipped map assets.
var terrainManifest = map[GameMap]TerrainInfo{
	MapWorld:        {Width: 2048, Height: 1024, LandTiles: 614400, Nations: 60},
	MapEurope:       {Width: 1536, Height: 1024, LandTiles: 393216, Nations: 40},
	MapAsia:         {Width: 1792, Height: 1024, LandTiles: 524288, Nations: 45},
	MapNorthAmerica: {Width: 1536, Height: 1152, LandTiles: 442368, Nations: 35},
	MapSouthAmerica: {Width: 1024, Height: 1408, LandTiles: 360448, Nations: 25},
	MapAfrica:       {Width: 1280, Height: 1280, LandTiles: 409600, Nations: 30},
	MapPangaea:      {Width: 1280, Height: 960, LandTiles: 491520, Nations: 30},
	MapOceania:      {Width: 1536, Height: 1024, LandTiles: 196608, Nations: 15},
	MapBlackSea:     {Width: 1024, Height: 768, LandTiles: 327680, Nations: 20},
}

// LoadTerrain returns terrain info for the given map.
func LoadTerrain(m GameMap) (TerrainInfo, error) {
	info, ok := terrainManifest[m]
	if !ok {
		return TerrainInfo{}, fmt.Errorf("unknown map %q", m)
	}
	return info, nil
}

// RandomMap picks a uniform random member of pool.
func RandomMap(pool []GameMap) (GameMap, error) {
	if len(pool) == 0 {
		return "", ErrEmptyMapPool
	}
	return pool[rand.Intn(len(pool))], nil
}

// inRankedPool reports whether m is a canonical ranked map.
func inRankedPool(m GameMap) bool {
	for _, rm := range RankedMapPool {
		if rm == m {
			return true
		}
	}
	return false
}
