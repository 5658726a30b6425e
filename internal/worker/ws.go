// internal/worker/ws.go
package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mapwars/mapwars/internal/game"
)

// handleJoin upgrades the connection to WebSocket and attaches the caller
// to the session's roster. The token (query param "token") is verified to a
// caller identity which becomes the roster client ID. Every received frame
// counts as a liveness heartbeat; when the socket closes the client leaves
// the roster unless the game has started.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
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

	sub, err := s.Verifier.VerifyToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	clientID, err := uuid.Parse(sub)
	if err != nil {
		http.Error(w, "token subject is not a client id", http.StatusUnauthorized)
		return
	}

	if err := sess.AddClient(clientID); err != nil {
		http.Error(w, err.Error(), http.StatusGone)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error for game %s: %v", gameID, err)
		sess.RemoveClient(clientID)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler exit")

	s.Logger.Infof("client %s joined game %s from %s", clientID, gameID, r.RemoteAddr)
	sess.Heartbeat()

	s.readLoop(r.Context(), c, sess, clientID)
}

// readLoop drains frames from the client. Frame contents are gameplay
// traffic handled elsewhere; this layer only cares that frames keep
// arriving.
func (s *Server) readLoop(ctx context.Context, c *websocket.Conn, sess *game.GameSession, clientID uuid.UUID) {
	for {
		_, _, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				s.Logger.Infof("client %s left game %s", clientID, sess.ID)
			} else {
				s.Logger.Warnf("client %s read error on game %s: %v", clientID, sess.ID, err)
			}
			if !sess.HasStarted() {
				sess.RemoveClient(clientID)
			}
			c.Close(websocket.StatusNormalClosure, "bye")
			return
		}
		sess.Heartbeat()
	}
}
