package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ProlificLabs/captrivia-cli/internal/metrics"
)

// Error is a backend-reported failure carrying the HTTP status and the
// message from the response's error field.
type Error struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("backend error (%d): %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a backend 404, the signal that a game or
// session no longer exists and the local session should be evicted.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
}

// Client talks to the Captrivia backend over HTTP.
type Client struct {
	base    string
	http    *http.Client
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewClient builds a Client for the given backend origin.
func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported backend scheme %q", u.Scheme)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		base:    strings.TrimRight(u.String(), "/"),
		http:    httpClient,
		logger:  opts.Logger.With().Str("component", "api").Logger(),
		metrics: opts.Metrics,
	}, nil
}

// StartGame creates a new game and returns the caller's session.
func (c *Client) StartGame(ctx context.Context, req StartGameRequest) (*GameSession, error) {
	var session GameSession
	if err := c.post(ctx, "/game/start", "start", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// JoinGame joins an existing multiplayer game by id.
func (c *Client) JoinGame(ctx context.Context, req JoinGameRequest) (*GameSession, error) {
	var session GameSession
	if err := c.post(ctx, "/game/join", "join", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// FetchGame retrieves the authoritative game snapshot for a session.
func (c *Client) FetchGame(ctx context.Context, gameID, sessionID string) (*Game, error) {
	path := fmt.Sprintf("/game/%s/%s", url.PathEscape(gameID), url.PathEscape(sessionID))
	var game Game
	if err := c.do(ctx, http.MethodGet, path, "fetch_game", nil, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// SubmitAnswer submits one answer for the current question.
func (c *Client) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*AnswerResponse, error) {
	var resp AnswerResponse
	if err := c.post(ctx, "/answer", "answer", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EndGame performs the end-of-game handshake.
func (c *Client) EndGame(ctx context.Context, req EndGameRequest) (*EndGameResponse, error) {
	var resp EndGameResponse
	if err := c.post(ctx, "/game/end", "end", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path, endpoint string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, endpoint, body, out)
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.count(endpoint, "transport_error")
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.count(endpoint, "backend_error")
		return c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.count(endpoint, "decode_error")
			return fmt.Errorf("decode %s response: %w", endpoint, err)
		}
	}

	c.count(endpoint, "ok")
	return nil
}

// decodeError extracts the backend's {error} body, falling back to a generic
// message when the body is not parseable.
func (c *Client) decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	message := "request failed"
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		message = body.Error
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Str("message", message).
		Msg("backend returned error")

	return &Error{Status: resp.StatusCode, Message: message}
}

func (c *Client) count(endpoint, outcome string) {
	if c.metrics != nil {
		c.metrics.APIRequests.WithLabelValues(endpoint, outcome).Inc()
	}
}

// JoinURL builds the shareable join link for a game.
func JoinURL(origin, gameID string) string {
	return fmt.Sprintf("%s/join?gameId=%s", strings.TrimRight(origin, "/"), url.QueryEscape(gameID))
}
