// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for finished-game records.
var DefaultQueueName = "mapwars_game_records"

// GameRecord holds the minimal info the historian needs to persist a
// retired session.
type GameRecord struct {
	GameID     uuid.UUID `json:"game_id"`
	GameType   string    `json:"game_type"`
	GameMap    string    `json:"game_map"`
	Clients    int       `json:"clients"`
	CreatedAt  int64     `json:"created_at"`
	FinishedAt int64     `json:"finished_at"`
}

// Publisher pushes game records onto a Redis queue for the historian to
// drain. A nil Publisher is a no-op sink, used when REDIS_ADDR is unset.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// Connect initializes a Publisher against the given Redis address.
func Connect(addr, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueueName
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Publisher{rdb: rdb, queue: queue}, nil
}

// Publish serializes the record to JSON and pushes it onto the queue. This
// does not block the calling logic beyond a quick network send.
func (p *Publisher) Publish(ctx context.Context, record GameRecord) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list %q: %w", p.queue, err)
	}
	return nil
}

// Pop blocks up to timeout waiting for the next record on the queue. It
// returns redis.Nil (wrapped) when the wait times out.
func (p *Publisher) Pop(ctx context.Context, timeout time.Duration) (GameRecord, error) {
	res, err := p.rdb.BLPop(ctx, timeout, p.queue).Result()
	if err != nil {
		return GameRecord{}, err
	}
	// BLPop returns [key, value].
	var record GameRecord
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return GameRecord{}, fmt.Errorf("failed to unmarshal GameRecord: %w", err)
	}
	return record, nil
}
