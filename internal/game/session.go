// internal/game/session.go
package game

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is a session's position in its lifecycle. It is computed from the
// session's timestamps and roster on every query rather than stored, so
// there is no timer to drift; only the Lobby→Active edge needs an explicit
// external trigger (SetStarted).
type Phase string

const (
	PhaseQueue    Phase = "queue"
	PhaseLobby    Phase = "lobby"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

// StalenessThreshold is how long an active session may go without a client
// heartbeat before it is considered abandoned and retires itself.
const StalenessThreshold = 20 * time.Second

// ErrSessionStarted is returned for roster or config mutations attempted
// after the game has started.
var ErrSessionStarted = errors.New("session has already started")

// GameInfo is the externally visible snapshot of one session. It is derived
// on demand and never persisted. A nil Config marks a session that never
// materialized or has been torn down; the coordinator treats it as gone.
type GameInfo struct {
	GameID  uuid.UUID   `json:"gameID"`
	Clients int         `json:"clients"`
	Config  *GameConfig `json:"gameConfig,omitempty"`

	// MsUntilStart is the queue/lobby deadline as a fixed epoch-millisecond
	// value, identical across repeated reads of the same session. Clients
	// render their countdown against it.
	MsUntilStart int64 `json:"msUntilStart"`
}

// GameSession owns one game's lifecycle from creation to retirement. A
// session lives on exactly one worker for its entire life.
type GameSession struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu         sync.Mutex
	cfg        GameConfig
	clients    []uuid.UUID
	hasStarted bool
	finished   bool
	lastPing   time.Time

	now func() time.Time
}

// NewSession creates a session with the given config. Pass nil for nowFn to
// use the wall clock; tests inject a fake.
func NewSession(id uuid.UUID, cfg GameConfig, nowFn func() time.Time) *GameSession {
	if nowFn == nil {
		nowFn = time.Now
	}
	created := nowFn()
	return &GameSession{
		ID:        id,
		CreatedAt: created,
		cfg:       cfg,
		lastPing:  created,
		now:       nowFn,
	}
}

// Phase returns the session's current lifecycle phase.
func (s *GameSession) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

// phaseLocked computes the phase; caller holds s.mu. Finished latches so the
// lifecycle is monotonic even if a stray heartbeat arrives afterwards.
func (s *GameSession) phaseLocked() Phase {
	if s.finished {
		return PhaseFinished
	}
	if s.hasStarted {
		if s.now().Sub(s.lastPing) > StalenessThreshold {
			s.finished = true
			return PhaseFinished
		}
		return PhaseActive
	}
	if s.cfg.GameType == TypeRanked {
		if s.cfg.MaxPlayers > 0 && len(s.clients) >= s.cfg.MaxPlayers {
			return PhaseLobby
		}
		if s.now().After(s.queueDeadline()) {
			return PhaseLobby
		}
		return PhaseQueue
	}
	return PhaseLobby
}

func (s *GameSession) queueDeadline() time.Time {
	return s.CreatedAt.Add(time.Duration(s.cfg.QueueSec) * time.Second)
}

func (s *GameSession) lobbyDeadline() time.Time {
	return s.CreatedAt.Add(time.Duration(s.cfg.LobbySec) * time.Second)
}

// Info returns the session's external snapshot.
func (s *GameSession) Info() GameInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	info := GameInfo{
		GameID:  s.ID,
		Clients: len(s.clients),
		Config:  &cfg,
	}
	// The deadline is fixed at creation; it must not move between reads.
	// Ranked sessions report the queue deadline, others the lobby deadline.
	switch s.phaseLocked() {
	case PhaseQueue:
		info.MsUntilStart = s.queueDeadline().UnixMilli()
	case PhaseLobby:
		if s.cfg.GameType == TypeRanked {
			info.MsUntilStart = s.queueDeadline().UnixMilli()
		} else {
			info.MsUntilStart = s.lobbyDeadline().UnixMilli()
		}
	}
	return info
}

// Config returns a copy of the session's current configuration.
func (s *GameSession) Config() GameConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// AddClient appends clientID to the roster if not already present. Joining
// is refused once the game has started.
func (s *GameSession) AddClient(clientID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phaseLocked() {
	case PhaseActive, PhaseFinished:
		return ErrSessionStarted
	}
	for _, c := range s.clients {
		if c == clientID {
			return nil
		}
	}
	s.clients = append(s.clients, clientID)
	return nil
}

// RemoveClient drops clientID from the roster. Reports whether it was
// present.
func (s *GameSession) RemoveClient(clientID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.clients {
		if c == clientID {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return true
		}
	}
	return false
}

// Clients returns the roster in join order.
func (s *GameSession) Clients() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uuid.UUID, len(s.clients))
	copy(out, s.clients)
	return out
}

// Heartbeat records a client liveness signal.
func (s *GameSession) Heartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPing = s.now()
}

// SetStarted marks the game as started by the simulation driver. The
// heartbeat clock restarts so a long lobby wait does not count as
// staleness.
func (s *GameSession) SetStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasStarted || s.finished {
		return
	}
	s.hasStarted = true
	s.lastPing = s.now()
}

// HasStarted reports whether the start trigger has fired.
func (s *GameSession) HasStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasStarted
}

// ApplyPatch applies a partial config update under the per-type gating
// policy (see GameConfig.Apply). Updates are refused once the game has
// started.
func (s *GameSession) ApplyPatch(patch ConfigPatch) (map[string]PatchOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phaseLocked() {
	case PhaseActive, PhaseFinished:
		return nil, ErrSessionStarted
	}
	return s.cfg.Apply(patch), nil
}
