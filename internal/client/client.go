// Package client talks to a chessd server over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"chessrules/internal/core"
	"chessrules/internal/service"
)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 30 * time.Second
)

// APIError is a non-2xx reply. It unwraps to the core error matching its code,
// so errors.Is works the same as against the in-process service.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s): %s", e.Message, e.Code, e.Details)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case core.ErrCodeGameNotFound:
		return core.ErrGameNotFound
	case core.ErrCodeInvalidMove:
		return core.ErrIllegalMove
	case core.ErrCodeNotHumanTurn:
		return core.ErrNotHumanTurn
	case core.ErrCodeGameOver:
		return core.ErrGameOver
	case core.ErrCodeInvalidFEN:
		return core.ErrInvalidFEN
	case core.ErrCodeInvalidRecord:
		return core.ErrInvalidRecord
	case core.ErrCodeEngine:
		return core.ErrEngine
	}
	return nil
}

// HealthResponse mirrors the server health report.
type HealthResponse struct {
	Status        string `json:"status"`
	Time          int64  `json:"time"`
	Storage       string `json:"storage"`
	ComputerGames int    `json:"computerGames"`
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New creates a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp core.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Code != "" {
			apiErr.Code, apiErr.Message, apiErr.Details = errResp.Code, errResp.Error, errResp.Details
		} else {
			apiErr.Code = core.ErrCodeInternalError
			apiErr.Message = http.StatusText(resp.StatusCode)
			apiErr.Details = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) game(method, path string, body any) (*core.GameResponse, error) {
	var resp core.GameResponse
	if err := c.do(context.Background(), method, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func gamePath(gameID string, suffix ...string) string {
	return apiPrefix + "/games/" + gameID + strings.Join(suffix, "")
}

func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(context.Background(), http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateGame(req core.CreateGameRequest) (*core.GameResponse, error) {
	return c.game(http.MethodPost, apiPrefix+"/games", req)
}

func (c *Client) GetGame(gameID string) (*core.GameResponse, error) {
	return c.game(http.MethodGet, gamePath(gameID), nil)
}

// WaitForChange long-polls until the game has more than moveCount history
// entries or the server's wait ends.
func (c *Client) WaitForChange(ctx context.Context, gameID string, moveCount int) (*core.GameResponse, error) {
	var resp core.GameResponse
	path := fmt.Sprintf("%s?wait=true&moveCount=%d", gamePath(gameID), moveCount)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteGame(gameID string) error {
	return c.do(context.Background(), http.MethodDelete, gamePath(gameID), nil, nil)
}

func (c *Client) MakeMove(gameID, code string) (*core.GameResponse, error) {
	return c.game(http.MethodPost, gamePath(gameID, "/moves"), core.MoveRequest{Move: code})
}

// ComputerMove asks the server's engine to play for the side to move.
func (c *Client) ComputerMove(gameID string) (*core.GameResponse, error) {
	return c.MakeMove(gameID, service.ComputerMoveCode)
}

func (c *Client) Undo(gameID string, count int) (*core.GameResponse, error) {
	return c.game(http.MethodPost, gamePath(gameID, "/undo"), core.UndoRequest{Count: count})
}

func (c *Client) Resign(gameID string, side core.Side) (*core.GameResponse, error) {
	return c.game(http.MethodPost, gamePath(gameID, "/resign"), core.SideRequest{Side: side.Code()})
}

func (c *Client) RecordTimeout(gameID string, side core.Side) (*core.GameResponse, error) {
	return c.game(http.MethodPost, gamePath(gameID, "/timeout"), core.SideRequest{Side: side.Code()})
}

func (c *Client) ClaimDraw(gameID, drawType string) (*core.GameResponse, error) {
	return c.game(http.MethodPost, gamePath(gameID, "/draw"), core.DrawRequest{Type: drawType})
}

// WarResult ends the game by decree; core.NoSide records no victor.
func (c *Client) WarResult(gameID string, victor core.Side) (*core.GameResponse, error) {
	return c.game(http.MethodPost, gamePath(gameID, "/war"), core.WarResultRequest{Victor: victor.Code()})
}

func (c *Client) Board(gameID string) (*core.BoardResponse, error) {
	var resp core.BoardResponse
	if err := c.do(context.Background(), http.MethodGet, gamePath(gameID, "/board"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Record(gameID string) (*core.RecordResponse, error) {
	var resp core.RecordResponse
	if err := c.do(context.Background(), http.MethodGet, gamePath(gameID, "/record"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsNotFound reports whether err is a missing game reply.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
