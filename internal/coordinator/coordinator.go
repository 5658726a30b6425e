// internal/coordinator/coordinator.go
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mapwars/mapwars/internal/config"
	"github.com/mapwars/mapwars/internal/game"
)

// startImminentMs: a lobby whose deadline is this close stops being
// advertised as joinable.
const startImminentMs = 250

// fanoutLimit bounds concurrent status requests per tick.
const fanoutLimit = 16

// Coordinator owns the cross-worker lobby registry, runs the periodic
// reconciliation loop, and publishes the public listing snapshot. All of
// its mutable state lives on this struct; construct one per process and
// hand it to the HTTP server.
type Coordinator struct {
	Cfg      config.Config
	Logger   *logrus.Logger
	Registry *Registry
	Client   WorkerClient

	// now is the loop clock; tests swap in a fake.
	now func() time.Time

	snapMu   sync.RWMutex
	snapshot []byte

	readyMu   sync.Mutex
	ready     map[int]bool
	readyCh   chan struct{}
	readyOnce sync.Once

	lastRankedAttempt time.Time
}

// New builds a coordinator. The reconciliation loop does not start until
// RunLoop is called and every worker has reported ready.
func New(cfg config.Config, logger *logrus.Logger, client WorkerClient) *Coordinator {
	c := &Coordinator{
		Cfg:      cfg,
		Logger:   logger,
		Registry: NewRegistry(),
		Client:   client,
		now:      time.Now,
		ready:    make(map[int]bool),
		readyCh:  make(chan struct{}),
	}
	c.publish(nil)
	return c
}

// MarkWorkerReady records a worker's startup signal. Reconciliation begins
// once every expected worker index has reported.
func (c *Coordinator) MarkWorkerReady(index int) {
	c.readyMu.Lock()
	defer c.readyMu.Unlock()
	if index < 0 || index >= c.Cfg.Workers {
		c.Logger.Warnf("ignoring readiness signal for unknown worker index %d", index)
		return
	}
	if c.ready[index] {
		return
	}
	c.ready[index] = true
	c.Logger.Infof("worker %d ready (%d/%d)", index, len(c.ready), c.Cfg.Workers)
	if len(c.ready) == c.Cfg.Workers {
		c.readyOnce.Do(func() { close(c.readyCh) })
	}
}

// WorkerForGame deterministically routes a game id to a worker index, so
// creation requests distribute without a central allocator.
func (c *Coordinator) WorkerForGame(id uuid.UUID) int {
	h := fnv.New32a()
	h.Write([]byte(id.String()))
	return int(h.Sum32() % uint32(c.Cfg.Workers))
}

// RunLoop blocks until all workers are ready, then reconciles on the
// configured interval until ctx is canceled. A tick runs to completion
// before the next is considered; ticks never overlap.
func (c *Coordinator) RunLoop(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-c.readyCh:
	}
	c.Logger.Infof("all %d workers ready, starting reconciliation every %s", c.Cfg.Workers, c.Cfg.ReconcileInterval)

	ticker := time.NewTicker(c.Cfg.ReconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// lobbyStatus pairs a registry entry with the result of its status fetch.
type lobbyStatus struct {
	id    uuid.UUID
	entry Entry
	info  game.GameInfo
	err   error
}

// Tick executes one reconciliation pass: refresh every tracked lobby,
// evict the dead, republish the listing, and replenish public/ranked
// lobbies as needed.
func (c *Coordinator) Tick(ctx context.Context) {
	entries := c.Registry.Snapshot()

	statuses := make([]lobbyStatus, 0, len(entries))
	for id, entry := range entries {
		statuses = append(statuses, lobbyStatus{id: id, entry: entry})
	}

	// Scatter/gather with bounded concurrency; a failed call marks its own
	// lobby and never aborts the batch.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(fanoutLimit)
	for i := range statuses {
		st := &statuses[i]
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, c.Cfg.WorkerTimeout)
			defer cancel()
			st.info, st.err = c.Client.FetchInfo(callCtx, st.entry.Worker, st.id)
			return nil
		})
	}
	g.Wait()

	nowMs := c.now().UnixMilli()
	var survivors []game.GameInfo
	var publicCount, rankedCount int
	for _, st := range statuses {
		if reason := c.evictReason(st, nowMs); reason != "" {
			c.Logger.WithFields(logrus.Fields{
				"game":   st.id,
				"worker": st.entry.Worker,
				"reason": reason,
			}).Info("dropping lobby from registry")
			c.Registry.Remove(st.id)
			continue
		}
		survivors = append(survivors, st.info)
		switch st.entry.Type {
		case game.TypePublic:
			publicCount++
		case game.TypeRanked:
			rankedCount++
		}
	}

	c.publish(survivors)

	if publicCount == 0 {
		if err := c.schedulePublic(ctx); err != nil {
			c.Logger.Warnf("failed to schedule public lobby: %v", err)
		}
	}
	if rankedCount == 0 {
		c.maybeScheduleRanked(ctx)
	}
}

// evictReason decides whether a tracked lobby should be dropped, returning
// a non-empty reason when it should.
func (c *Coordinator) evictReason(st lobbyStatus, nowMs int64) string {
	if st.err != nil {
		return fmt.Sprintf("status fetch failed: %v", st.err)
	}
	if st.info.Config == nil {
		return "worker reports no config"
	}
	if st.info.MsUntilStart-nowMs <= startImminentMs {
		return "start imminent"
	}
	if st.info.Config.MaxPlayers > 0 && st.info.Clients >= st.info.Config.MaxPlayers {
		return "at capacity"
	}
	return ""
}

// schedulePublic creates exactly one public lobby on the hash-selected
// worker and tracks it.
func (c *Coordinator) schedulePublic(ctx context.Context) error {
	id := uuid.New()
	worker := c.WorkerForGame(id)
	cfg := game.PublicPreset()

	callCtx, cancel := context.WithTimeout(ctx, c.Cfg.WorkerTimeout)
	defer cancel()
	if err := c.Client.CreateGame(callCtx, worker, id, cfg); err != nil {
		return err
	}
	c.Registry.Add(id, Entry{Type: game.TypePublic, Worker: worker})
	c.Logger.Infof("scheduled public lobby %s on worker %d (map %s)", id, worker, cfg.GameMap)
	return nil
}

// maybeScheduleRanked creates one ranked lobby if the cooldown has elapsed.
// A failed attempt zeroes the cooldown marker so the next tick retries
// immediately instead of waiting the cooldown out.
func (c *Coordinator) maybeScheduleRanked(ctx context.Context) {
	now := c.now()
	if !c.lastRankedAttempt.IsZero() && now.Sub(c.lastRankedAttempt) < c.Cfg.RankedCooldown {
		return
	}
	c.lastRankedAttempt = now

	cfg, err := game.RankedPreset()
	if err != nil {
		// Empty ranked pool is a configuration defect; retrying will not
		// help, so keep the cooldown stamp and surface it in the log.
		c.Logger.Errorf("ranked preset unavailable: %v", err)
		return
	}

	id := uuid.New()
	worker := c.WorkerForGame(id)
	callCtx, cancel := context.WithTimeout(ctx, c.Cfg.WorkerTimeout)
	defer cancel()
	if err := c.Client.CreateGame(callCtx, worker, id, cfg); err != nil {
		c.Logger.Warnf("failed to schedule ranked lobby: %v", err)
		c.lastRankedAttempt = time.Time{}
		return
	}
	c.Registry.Add(id, Entry{Type: game.TypeRanked, Worker: worker})
	c.Logger.Infof("scheduled ranked lobby %s on worker %d (map %s)", id, worker, cfg.GameMap)
}

// publish serializes the surviving lobbies into the listing snapshot served
// by the public endpoint.
func (c *Coordinator) publish(lobbies []game.GameInfo) {
	if lobbies == nil {
		lobbies = []game.GameInfo{}
	}
	data, err := json.Marshal(map[string]interface{}{"lobbies": lobbies})
	if err != nil {
		c.Logger.Errorf("failed to marshal lobby listing: %v", err)
		return
	}
	c.snapMu.Lock()
	c.snapshot = data
	c.snapMu.Unlock()
}

// Snapshot returns the last-published listing bytes.
func (c *Coordinator) Snapshot() []byte {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapshot
}

// KickPlayer proxies a kick to the worker owning gameID.
func (c *Coordinator) KickPlayer(ctx context.Context, gameID, clientID uuid.UUID) error {
	entry, ok := c.Registry.Get(gameID)
	if !ok {
		return fmt.Errorf("game %s is not tracked", gameID)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.Cfg.WorkerTimeout)
	defer cancel()
	return c.Client.KickPlayer(callCtx, entry.Worker, gameID, clientID)
}
