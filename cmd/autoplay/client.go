package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
)

// Client talks to the REST API for one session
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
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

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + c.sessionID + suffix
}

// CreateSession starts a session and remembers its ID
func (c *Client) CreateSession(ctx context.Context, difficulty string) (*engine.GameState, error) {
	body := map[string]string{}
	if difficulty != "" {
		body["difficulty"] = difficulty
	}
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return nil, err
	}
	c.sessionID = info.ID
	return info.GameState, nil
}

func (c *Client) GetState(ctx context.Context) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/state"), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// NewGame deals a fresh board, optionally at another difficulty
func (c *Client) NewGame(ctx context.Context, difficulty string) (*engine.GameState, error) {
	body := map[string]string{}
	if difficulty != "" {
		body["difficulty"] = difficulty
	}
	var state engine.GameState
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/new-game"), body, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Flip returns the result even when the flip was rejected
func (c *Client) Flip(ctx context.Context, index int) (*service.FlipResult, error) {
	var result service.FlipResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/flip"), map[string]int{"index": index}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
