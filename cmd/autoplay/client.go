package main

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

	"github.com/cenkalti/backoff/v5"

	"github.com/wricardo/emoji-maze-quest/api"
	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/service"
	"github.com/wricardo/emoji-maze-quest/game/session"
)

// APIError is an error envelope returned by the server
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Client drives one session of the maze REST API. Requests rejected as too
// soon (move pacing, modal lockout) are retried at a fixed interval.
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
	retry     time.Duration
	tries     uint
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: 150 * time.Millisecond,
		tries: 20,
	}
}

// SessionID is the session the client plays, set by CreateSession
func (c *Client) SessionID() string { return c.sessionID }

// CreateSession starts (or rejoins) the profile's adventure
func (c *Client) CreateSession(ctx context.Context, req service.CreateSessionRequest) (*session.View, error) {
	view, err := c.call(ctx, http.MethodPost, "/api/sessions", req)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = view.SessionID
	return view, nil
}

func (c *Client) GetState(ctx context.Context) (*session.View, error) {
	return c.call(ctx, http.MethodGet, c.sessionPath(""), nil)
}

func (c *Client) Move(ctx context.Context, dir engine.Direction) (*session.View, error) {
	return c.call(ctx, http.MethodPost, c.sessionPath("/move"), map[string]string{"direction": string(dir)})
}

func (c *Client) Answer(ctx context.Context, correct bool) (*session.View, error) {
	return c.call(ctx, http.MethodPost, c.sessionPath("/answer"), map[string]bool{"correct": correct})
}

func (c *Client) Action(ctx context.Context, action string) (*session.View, error) {
	return c.call(ctx, http.MethodPost, c.sessionPath("/action"), map[string]string{"action": action})
}

// Leave saves the adventure and returns the session to idle
func (c *Client) Leave(ctx context.Context) (*session.View, error) {
	return c.call(ctx, http.MethodDelete, c.sessionPath(""), nil)
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + c.sessionID + suffix
}

func (c *Client) call(ctx context.Context, method, path string, payload any) (*session.View, error) {
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = data
	}

	return backoff.Retry(ctx, func() (*session.View, error) {
		view, err := c.do(ctx, method, path, body)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == api.CodeTooSoon {
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return view, nil
	}, backoff.WithBackOff(backoff.NewConstantBackOff(c.retry)), backoff.WithMaxTries(c.tries))
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*session.View, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope api.ErrorBody
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code == "" {
			return nil, &APIError{Status: resp.StatusCode, Code: "unknown", Message: strings.TrimSpace(string(data))}
		}
		return nil, &APIError{Status: resp.StatusCode, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}

	var view session.View
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("parse view: %w", err)
	}
	return &view, nil
}
