// internal/database/game.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapwars/mapwars/internal/cache"
)

// InsertGameRecord persists one retired session. The row is upserted so a
// redelivered queue entry does not fail the historian.
func InsertGameRecord(ctx context.Context, pool *pgxpool.Pool, r cache.GameRecord) error {
	q := `
		INSERT INTO games (id, game_type, game_map, clients, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET clients = $4, finished_at = $6
	`
	_, err := pool.Exec(ctx, q,
		r.GameID,
		r.GameType,
		r.GameMap,
		r.Clients,
		time.UnixMilli(r.CreatedAt),
		time.UnixMilli(r.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert game record %s: %w", r.GameID, err)
	}
	return nil
}
