// internal/coordinator/transport.go
package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/mapwars/mapwars/internal/config"
	"github.com/mapwars/mapwars/internal/game"
)

// WorkerClient is the coordinator's view of a worker. The HTTP
// implementation talks over loopback; tests substitute a fake so
// reconciliation runs without network I/O.
type WorkerClient interface {
	FetchInfo(ctx context.Context, worker int, gameID uuid.UUID) (game.GameInfo, error)
	CreateGame(ctx context.Context, worker int, gameID uuid.UUID, cfg game.GameConfig) error
	KickPlayer(ctx context.Context, worker int, gameID, clientID uuid.UUID) error
}

// HTTPWorkerClient addresses workers by their index-derived loopback port
// and authenticates with the shared admin header.
type HTTPWorkerClient struct {
	Cfg    config.Config
	Client *http.Client
}

// NewHTTPWorkerClient builds the production transport.
func NewHTTPWorkerClient(cfg config.Config) *HTTPWorkerClient {
	return &HTTPWorkerClient{
		Cfg:    cfg,
		Client: &http.Client{},
	}
}

func (h *HTTPWorkerClient) url(worker int, path string) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", h.Cfg.WorkerPort(worker), path)
}

func (h *HTTPWorkerClient) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(h.Cfg.AdminHeader, h.Cfg.AdminToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.Client.Do(req)
}

// FetchInfo requests the lobby's current snapshot from its owning worker.
func (h *HTTPWorkerClient) FetchInfo(ctx context.Context, worker int, gameID uuid.UUID) (game.GameInfo, error) {
	resp, err := h.do(ctx, http.MethodGet, h.url(worker, "/api/game/"+gameID.String()), nil)
	if err != nil {
		return game.GameInfo{}, fmt.Errorf("fetch info for game %s from worker %d: %w", gameID, worker, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return game.GameInfo{}, fmt.Errorf("worker %d returned status %d for game %s", worker, resp.StatusCode, gameID)
	}
	var info game.GameInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return game.GameInfo{}, fmt.Errorf("decode info for game %s: %w", gameID, err)
	}
	return info, nil
}

// CreateGame asks a worker to materialize a new session.
func (h *HTTPWorkerClient) CreateGame(ctx context.Context, worker int, gameID uuid.UUID, cfg game.GameConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config for game %s: %w", gameID, err)
	}
	resp, err := h.do(ctx, http.MethodPost, h.url(worker, "/api/create_game/"+gameID.String()), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create game %s on worker %d: %w", gameID, worker, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("worker %d rejected game %s: status %d: %s", worker, gameID, resp.StatusCode, msg)
	}
	return nil
}

// KickPlayer proxies a roster removal to the owning worker.
func (h *HTTPWorkerClient) KickPlayer(ctx context.Context, worker int, gameID, clientID uuid.UUID) error {
	path := fmt.Sprintf("/api/kick_player/%s/%s", gameID, clientID)
	resp, err := h.do(ctx, http.MethodPost, h.url(worker, path), nil)
	if err != nil {
		return fmt.Errorf("kick client %s from game %s: %w", clientID, gameID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("worker %d returned status %d for kick on game %s", worker, resp.StatusCode, gameID)
	}
	return nil
}
