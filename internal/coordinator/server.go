// internal/coordinator/server.go
package coordinator

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mapwars/mapwars/internal/middleware"
)

// Routes assembles the coordinator's public HTTP surface.
func (c *Coordinator) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(c.Logger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rate.Limit(5), 10))
		r.Get("/api/public_lobbies", c.handlePublicLobbies)
		r.Get("/api/env", c.handleEnv)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(c.Cfg.AdminHeader, c.Cfg.AdminToken))
		r.Post("/api/kick_player/{gameID}/{clientID}", c.handleKickPlayer)
		r.Post("/api/worker_ready/{index}", c.handleWorkerReady)
	})

	r.NotFound(c.handleShell)
	return r
}

// handlePublicLobbies serves the last-published snapshot; nothing is
// computed per request.
func (c *Coordinator) handlePublicLobbies(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(c.Snapshot())
}

// handleEnv reports the deployment environment tag.
func (c *Coordinator) handleEnv(w http.ResponseWriter, r *http.Request) {
	if c.Cfg.Environment == "" {
		http.Error(w, "environment not configured", http.StatusInternalServerError)
		return
	}
	w.Write([]byte(c.Cfg.Environment))
}

// handleKickPlayer proxies an admin kick to the owning worker.
func (c *Coordinator) handleKickPlayer(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	clientID, err := uuid.Parse(chi.URLParam(r, "clientID"))
	if err != nil {
		http.Error(w, "invalid client id", http.StatusBadRequest)
		return
	}
	if err := c.KickPlayer(r.Context(), gameID, clientID); err != nil {
		c.Logger.Warnf("kick proxy failed for game %s: %v", gameID, err)
		http.Error(w, "kick failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleWorkerReady records a worker's startup signal.
func (c *Coordinator) handleWorkerReady(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid worker index", http.StatusBadRequest)
		return
	}
	c.MarkWorkerReady(index)
	w.WriteHeader(http.StatusOK)
}

// handleShell serves the client application shell for any unmatched path.
func (c *Coordinator) handleShell(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(c.Cfg.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		http.NotFound(w, r)
		return
	}
	// Serve real assets when they exist, the shell otherwise.
	path := filepath.Join(c.Cfg.StaticDir, filepath.Clean(r.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		http.ServeFile(w, r, path)
		return
	}
	http.ServeFile(w, r, index)
}
