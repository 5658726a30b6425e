// cmd/historian/main.go is an asynchronous drain that pops finished-game
// records from the Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mapwars/mapwars/internal/cache"
	"github.com/mapwars/mapwars/internal/config"
	"github.com/mapwars/mapwars/internal/database"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		logger.Fatal("historian requires REDIS_ADDR and DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := cache.Connect(cfg.RedisAddr, "")
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()

	logger.Info("historian draining game records")
	for ctx.Err() == nil {
		record, err := queue.Pop(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			logger.Warnf("pop record: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if err := database.InsertGameRecord(ctx, pool, record); err != nil {
			logger.Errorf("persist record: %v", err)
		} else {
			logger.Infof("persisted game %s (%s on %s, %d clients)",
				record.GameID, record.GameType, record.GameMap, record.Clients)
		}
	}
}
