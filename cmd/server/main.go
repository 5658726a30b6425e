// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/mapwars/mapwars/internal/auth"
	"github.com/mapwars/mapwars/internal/cache"
	"github.com/mapwars/mapwars/internal/config"
	"github.com/mapwars/mapwars/internal/coordinator"
	"github.com/mapwars/mapwars/internal/supervisor"
	"github.com/mapwars/mapwars/internal/worker"
)

// reapInterval is how often a worker sweeps finished sessions.
const reapInterval = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsWorker() {
		runWorker(ctx, cfg, logger)
		return
	}
	runMaster(ctx, cfg, logger)
}

// runMaster starts the worker supervisor, the reconciliation loop, and the
// public API.
func runMaster(ctx context.Context, cfg config.Config, logger *logrus.Logger) {
	coord := coordinator.New(cfg, logger, coordinator.NewHTTPWorkerClient(cfg))

	sup := supervisor.New(cfg, logger)
	go func() {
		if err := sup.Run(ctx); err != nil {
			logger.Fatalf("supervisor: %v", err)
		}
	}()
	go coord.RunLoop(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Infof("master listening on %s (%d workers)", addr, cfg.Workers)
	if err := listenAndServe(ctx, addr, coord.Routes()); err != nil {
		logger.Fatalf("master server exited: %v", err)
	}
}

// runWorker hosts game sessions on the index-derived port and signals
// readiness to the master.
func runWorker(ctx context.Context, cfg config.Config, logger *logrus.Logger) {
	verifier, err := newVerifier()
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	var records *cache.Publisher
	if cfg.RedisAddr != "" {
		records, err = cache.Connect(cfg.RedisAddr, "")
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
	}

	srv := worker.NewServer(cfg.WorkerIndex, cfg, logger, verifier, records)
	go srv.RunReaper(ctx, reapInterval)
	go signalReady(ctx, cfg, logger)

	addr := fmt.Sprintf(":%d", cfg.WorkerPort(cfg.WorkerIndex))
	logger.Infof("worker %d listening on %s", cfg.WorkerIndex, addr)
	if err := listenAndServe(ctx, addr, srv.Routes()); err != nil {
		logger.Fatalf("worker server exited: %v", err)
	}
}

// newVerifier loads the issuer keypair when configured, or generates a dev
// keypair.
func newVerifier() (*auth.Verifier, error) {
	priv := os.Getenv("JWT_PRIVATE_KEY_PATH")
	pub := os.Getenv("JWT_PUBLIC_KEY_PATH")
	if priv != "" && pub != "" {
		return auth.NewVerifierFromPath(priv, pub)
	}
	return auth.NewVerifier()
}

// signalReady reports this worker's index to the master, retrying until the
// master is listening. The coordinator holds its first reconciliation tick
// until every worker has reported.
func signalReady(ctx context.Context, cfg config.Config, logger *logrus.Logger) {
	url := fmt.Sprintf("http://127.0.0.1:%d/api/worker_ready/%d", cfg.Port, cfg.WorkerIndex)
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			logger.Errorf("build readiness request: %v", err)
			return
		}
		req.Header.Set(cfg.AdminHeader, cfg.AdminToken)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				logger.Infof("worker %d reported ready", cfg.WorkerIndex)
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// listenAndServe runs an http.Server that shuts down when ctx is canceled.
func listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
