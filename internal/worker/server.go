// internal/worker/server.go
package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mapwars/mapwars/internal/auth"
	"github.com/mapwars/mapwars/internal/cache"
	"github.com/mapwars/mapwars/internal/config"
	"github.com/mapwars/mapwars/internal/game"
	"github.com/mapwars/mapwars/internal/middleware"
)

// Server hosts the game sessions owned by one worker process and answers
// the coordinator's admin-authenticated calls.
type Server struct {
	Index    int
	Store    *game.SessionStore
	Cfg      config.Config
	Logger   *logrus.Logger
	Verifier *auth.Verifier
	Records  *cache.Publisher

	// now is the session clock; tests swap in a fake.
	now func() time.Time
}

// NewServer builds a worker server. records may be nil, in which case
// finished sessions are reaped without emitting records.
func NewServer(index int, cfg config.Config, logger *logrus.Logger, verifier *auth.Verifier, records *cache.Publisher) *Server {
	return &Server{
		Index:    index,
		Store:    game.NewSessionStore(),
		Cfg:      cfg,
		Logger:   logger,
		Verifier: verifier,
		Records:  records,
		now:      time.Now,
	}
}

// Routes assembles the worker's HTTP surface. Everything except the client
// join socket requires the shared admin header/token.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(s.Logger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(s.Cfg.AdminHeader, s.Cfg.AdminToken))
		r.Post("/api/create_game/{gameID}", s.handleCreateGame)
		r.Get("/api/game/{gameID}", s.handleGameInfo)
		r.Post("/api/start_game/{gameID}", s.handleStartGame)
		r.Post("/api/update_config/{gameID}", s.handleUpdateConfig)
		r.Post("/api/kick_player/{gameID}/{clientID}", s.handleKickPlayer)
	})

	r.Get("/api/join/{gameID}", s.handleJoin)
	return r
}

func parseGameID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "gameID"))
	return id, err == nil
}

// handleCreateGame materializes a new session from the posted GameConfig.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := parseGameID(r)
	if !ok {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	var cfg game.GameConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid config body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	terrain, err := game.LoadTerrain(cfg.GameMap)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := game.EnsureValidTeamSetup(cfg, terrain, 0, cfg.DisableNPCs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess := game.NewSession(gameID, cfg, s.now)
	if !s.Store.Add(sess) {
		http.Error(w, "game already exists", http.StatusConflict)
		return
	}
	s.Logger.WithFields(logrus.Fields{
		"game":   gameID,
		"type":   cfg.GameType,
		"map":    cfg.GameMap,
		"worker": s.Index,
	}).Info("created game session")

	writeJSON(w, sess.Info())
}

// handleGameInfo returns the session's snapshot.
func (s *Server) handleGameInfo(w http.ResponseWriter, r *http.Request) {
	gameID, ok := parseGameID(r)
	if !ok {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	sess, found := s.Store.Get(gameID)
	if !found {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	writeJSON(w, sess.Info())
}

// handleStartGame is the exogenous Lobby→Active trigger from the simulation
// driver.
func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := parseGameID(r)
	if !ok {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	sess, found := s.Store.Get(gameID)
	if !found {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	sess.SetStarted()
	s.Logger.Infof("game %s started", gameID)
	w.WriteHeader(http.StatusOK)
}

// handleUpdateConfig applies a partial config update under the session's
// gating policy and echoes the per-field outcomes.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	gameID, ok := parseGameID(r)
	if !ok {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	sess, found := s.Store.Get(gameID)
	if !found {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	var patch game.ConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid patch body: "+err.Error(), http.StatusBadRequest)
		return
	}
	outcomes, err := sess.ApplyPatch(patch)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]interface{}{
		"outcomes":   outcomes,
		"gameConfig": sess.Config(),
	})
}

// handleKickPlayer removes a client from the session's roster.
func (s *Server) handleKickPlayer(w http.ResponseWriter, r *http.Request) {
	gameID, ok := parseGameID(r)
	if !ok {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	clientID, err := uuid.Parse(chi.URLParam(r, "clientID"))
	if err != nil {
		http.Error(w, "invalid client id", http.StatusBadRequest)
		return
	}
	sess, found := s.Store.Get(gameID)
	if !found {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	if sess.RemoveClient(clientID) {
		s.Logger.Infof("kicked client %s from game %s", clientID, gameID)
	}
	w.WriteHeader(http.StatusOK)
}

// RunReaper periodically removes finished sessions and publishes their
// records. Blocks until ctx is canceled.
func (s *Server) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reapOnce(ctx)
		}
	}
}

func (s *Server) reapOnce(ctx context.Context) {
	for _, sess := range s.Store.ReapFinished() {
		cfg := sess.Config()
		record := cache.GameRecord{
			GameID:     sess.ID,
			GameType:   string(cfg.GameType),
			GameMap:    string(cfg.GameMap),
			Clients:    len(sess.Clients()),
			CreatedAt:  sess.CreatedAt.UnixMilli(),
			FinishedAt: s.now().UnixMilli(),
		}
		if err := s.Records.Publish(ctx, record); err != nil {
			s.Logger.Warnf("failed to publish record for game %s: %v", sess.ID, err)
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode response: "+err.Error(), http.StatusInternalServerError)
	}
}
