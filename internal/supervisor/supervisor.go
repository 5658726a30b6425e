// internal/supervisor/supervisor.go
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mapwars/mapwars/internal/config"
)

// respawnDelay spaces restarts so a worker that dies on startup does not
// spin the master.
const respawnDelay = time.Second

// Supervisor forks one child process per worker index and restarts any
// child that exits with the same logical index, keeping index-derived port
// routing valid. Lobbies owned by a dead worker are abandoned; the
// coordinator evicts them on its next reconciliation pass.
type Supervisor struct {
	Cfg    config.Config
	Logger *logrus.Logger
}

// New builds a supervisor for the configured worker count.
func New(cfg config.Config, logger *logrus.Logger) *Supervisor {
	return &Supervisor{Cfg: cfg, Logger: logger}
}

// Run spawns every worker and blocks, respawning exited children, until
// ctx is canceled.
func (s *Supervisor) Run(ctx context.Context) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own executable: %w", err)
	}
	for i := 0; i < s.Cfg.Workers; i++ {
		go s.superviseWorker(ctx, self, i)
	}
	<-ctx.Done()
	return nil
}

// superviseWorker keeps worker index alive for the life of ctx.
func (s *Supervisor) superviseWorker(ctx context.Context, self string, index int) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.Logger.Infof("starting worker %d on port %d", index, s.Cfg.WorkerPort(index))

		cmd := exec.CommandContext(ctx, self)
		cmd.Env = append(os.Environ(), fmt.Sprintf("WORKER_INDEX=%d", index))
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		err := cmd.Run()
		if ctx.Err() != nil {
			return
		}
		s.Logger.Warnf("worker %d exited (%v), respawning with same index", index, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(respawnDelay):
		}
	}
}
