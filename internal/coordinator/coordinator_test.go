// internal/coordinator/coordinator_test.go
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapwars/mapwars/internal/config"
	"github.com/mapwars/mapwars/internal/game"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type createCall struct {
	worker int
	id     uuid.UUID
	cfg    game.GameConfig
}

// fakeWorkerClient answers coordinator calls from in-memory tables, so
// reconciliation runs without network I/O.
type fakeWorkerClient struct {
	mu    sync.Mutex
	clock *fakeClock

	infos map[uuid.UUID]game.GameInfo
	errs  map[uuid.UUID]error

	creates      []createCall
	createErrFor map[game.GameType]error

	kicks []createCall
}

func newFakeWorkerClient(clock *fakeClock) *fakeWorkerClient {
	return &fakeWorkerClient{
		clock:        clock,
		infos:        make(map[uuid.UUID]game.GameInfo),
		errs:         make(map[uuid.UUID]error),
		createErrFor: make(map[game.GameType]error),
	}
}

func (f *fakeWorkerClient) FetchInfo(ctx context.Context, worker int, gameID uuid.UUID) (game.GameInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[gameID]; ok {
		return game.GameInfo{}, err
	}
	info, ok := f.infos[gameID]
	if !ok {
		return game.GameInfo{}, fmt.Errorf("worker %d has no game %s", worker, gameID)
	}
	return info, nil
}

// CreateGame records the call and starts serving a healthy snapshot for the
// new lobby, the way a real worker would.
func (f *fakeWorkerClient) CreateGame(ctx context.Context, worker int, gameID uuid.UUID, cfg game.GameConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErrFor[cfg.GameType]; err != nil {
		return err
	}
	f.creates = append(f.creates, createCall{worker: worker, id: gameID, cfg: cfg})
	c := cfg
	f.infos[gameID] = game.GameInfo{
		GameID:       gameID,
		Config:       &c,
		MsUntilStart: f.clock.Now().Add(time.Minute).UnixMilli(),
	}
	return nil
}

func (f *fakeWorkerClient) KickPlayer(ctx context.Context, worker int, gameID, clientID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicks = append(f.kicks, createCall{worker: worker, id: gameID})
	return nil
}

func (f *fakeWorkerClient) createsByType(t game.GameType) []createCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []createCall
	for _, c := range f.creates {
		if c.cfg.GameType == t {
			out = append(out, c)
		}
	}
	return out
}

func testConfig() config.Config {
	return config.Config{
		Environment:       "test",
		Port:              8080,
		BasePort:          8080,
		Workers:           2,
		AdminHeader:       "x-admin-token",
		AdminToken:        "secret",
		ReconcileInterval: 100 * time.Millisecond,
		WorkerTimeout:     5 * time.Second,
		RankedCooldown:    3 * time.Minute,
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeWorkerClient, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	client := newFakeWorkerClient(clock)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := New(testConfig(), logger, client)
	c.now = clock.Now
	return c, client, clock
}

func snapshotIDs(t *testing.T, c *Coordinator) []uuid.UUID {
	t.Helper()
	var body struct {
		Lobbies []game.GameInfo `json:"lobbies"`
	}
	require.NoError(t, json.Unmarshal(c.Snapshot(), &body))
	ids := make([]uuid.UUID, 0, len(body.Lobbies))
	for _, l := range body.Lobbies {
		ids = append(ids, l.GameID)
	}
	return ids
}

// healthy registers a lobby that fetches cleanly with a far-off deadline.
func healthy(c *Coordinator, client *fakeWorkerClient, typ game.GameType) uuid.UUID {
	id := uuid.New()
	cfg := game.PublicPreset()
	cfg.GameType = typ
	client.mu.Lock()
	ccfg := cfg
	client.infos[id] = game.GameInfo{
		GameID:       id,
		Config:       &ccfg,
		MsUntilStart: client.clock.Now().Add(time.Minute).UnixMilli(),
	}
	client.mu.Unlock()
	c.Registry.Add(id, Entry{Type: typ, Worker: 0})
	return id
}

// TestTimeoutEvictsLobby: a lobby whose status request fails is dropped
// from the registry and absent from the next published snapshot.
func TestTimeoutEvictsLobby(t *testing.T) {
	c, client, _ := newTestCoordinator(t)

	dead := healthy(c, client, game.TypePublic)
	client.mu.Lock()
	client.errs[dead] = context.DeadlineExceeded
	client.mu.Unlock()
	alive := healthy(c, client, game.TypePublic)

	c.Tick(context.Background())

	_, tracked := c.Registry.Get(dead)
	assert.False(t, tracked)
	ids := snapshotIDs(t, c)
	assert.NotContains(t, ids, dead)
	assert.Contains(t, ids, alive)
}

// TestMissingConfigEvicts: a worker reporting a lobby without config is
// treated identically to "lobby gone".
func TestMissingConfigEvicts(t *testing.T) {
	c, client, _ := newTestCoordinator(t)

	id := healthy(c, client, game.TypePublic)
	client.mu.Lock()
	client.infos[id] = game.GameInfo{GameID: id, MsUntilStart: client.clock.Now().Add(time.Minute).UnixMilli()}
	client.mu.Unlock()

	c.Tick(context.Background())
	_, tracked := c.Registry.Get(id)
	assert.False(t, tracked)
}

// TestImminentStartEvicts: a lobby about to start stops being advertised.
func TestImminentStartEvicts(t *testing.T) {
	c, client, clock := newTestCoordinator(t)

	id := healthy(c, client, game.TypePublic)
	client.mu.Lock()
	info := client.infos[id]
	info.MsUntilStart = clock.Now().Add(200 * time.Millisecond).UnixMilli()
	client.infos[id] = info
	client.mu.Unlock()

	c.Tick(context.Background())
	_, tracked := c.Registry.Get(id)
	assert.False(t, tracked)
}

// TestFullLobbyEvicts: a lobby at capacity is no longer joinable.
func TestFullLobbyEvicts(t *testing.T) {
	c, client, _ := newTestCoordinator(t)

	id := healthy(c, client, game.TypePublic)
	client.mu.Lock()
	info := client.infos[id]
	info.Clients = info.Config.MaxPlayers
	client.infos[id] = info
	client.mu.Unlock()

	c.Tick(context.Background())
	_, tracked := c.Registry.Get(id)
	assert.False(t, tracked)
	assert.NotContains(t, snapshotIDs(t, c), id)
}

// TestPublicReplenishment: zero public lobbies triggers exactly one
// creation, routed by the game-id hash; a healthy lobby stops further
// scheduling.
func TestPublicReplenishment(t *testing.T) {
	c, client, _ := newTestCoordinator(t)
	// Ranked under cooldown so only public scheduling is in play.
	c.lastRankedAttempt = c.now()

	c.Tick(context.Background())
	creates := client.createsByType(game.TypePublic)
	require.Len(t, creates, 1)
	assert.Equal(t, c.WorkerForGame(creates[0].id), creates[0].worker)

	c.Tick(context.Background())
	assert.Len(t, client.createsByType(game.TypePublic), 1, "healthy public lobby must not be duplicated")
}

// TestRankedCooldown: no ranked lobby is scheduled while the cooldown
// marker is fresh; once it lapses, exactly one is.
func TestRankedCooldown(t *testing.T) {
	c, client, clock := newTestCoordinator(t)
	healthy(c, client, game.TypePublic)

	c.lastRankedAttempt = clock.Now().Add(-time.Minute)
	c.Tick(context.Background())
	assert.Empty(t, client.createsByType(game.TypeRanked))

	clock.Advance(2*time.Minute + time.Second) // marker is now >3m old
	c.Tick(context.Background())
	assert.Len(t, client.createsByType(game.TypeRanked), 1)
}

// TestRankedFailureResetsCooldown: a failed scheduling attempt zeroes the
// marker so the next tick retries immediately.
func TestRankedFailureResetsCooldown(t *testing.T) {
	c, client, _ := newTestCoordinator(t)
	healthy(c, client, game.TypePublic)

	client.mu.Lock()
	client.createErrFor[game.TypeRanked] = fmt.Errorf("worker rejected")
	client.mu.Unlock()

	c.Tick(context.Background())
	assert.True(t, c.lastRankedAttempt.IsZero(), "failed attempt must zero the marker")

	// No clock advance: retry happens on the very next tick.
	client.mu.Lock()
	client.createErrFor[game.TypeRanked] = nil
	client.mu.Unlock()
	c.Tick(context.Background())
	assert.Len(t, client.createsByType(game.TypeRanked), 1)
	assert.False(t, c.lastRankedAttempt.IsZero())
}

func TestWorkerForGameIsDeterministic(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	id := uuid.New()
	w := c.WorkerForGame(id)
	for i := 0; i < 10; i++ {
		assert.Equal(t, w, c.WorkerForGame(id))
	}
	assert.GreaterOrEqual(t, w, 0)
	assert.Less(t, w, c.Cfg.Workers)
}

// TestReadinessBarrier: the loop must not start until every worker index
// has reported.
func TestReadinessBarrier(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	barrierOpen := func() bool {
		select {
		case <-c.readyCh:
			return true
		default:
			return false
		}
	}

	assert.False(t, barrierOpen())
	c.MarkWorkerReady(0)
	assert.False(t, barrierOpen())
	c.MarkWorkerReady(0) // duplicate signal does not count twice
	assert.False(t, barrierOpen())
	c.MarkWorkerReady(5) // unknown index is ignored
	assert.False(t, barrierOpen())
	c.MarkWorkerReady(1)
	assert.True(t, barrierOpen())
}

func TestKickProxy(t *testing.T) {
	c, client, _ := newTestCoordinator(t)

	id := healthy(c, client, game.TypePublic)
	require.NoError(t, c.KickPlayer(context.Background(), id, uuid.New()))
	assert.Len(t, client.kicks, 1)

	err := c.KickPlayer(context.Background(), uuid.New(), uuid.New())
	assert.Error(t, err, "untracked game cannot be proxied")
}
