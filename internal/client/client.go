// Package client talks to the draft server over HTTP on behalf of one player.
package client

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

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
	"github.com/DoyleJ11/lol-draft-room/pkg/types"
)

// ErrNotFound is returned when the server does not know the draft.
var ErrNotFound = errors.New("draft not found")

// APIError is a non-2xx response. Code carries the rejection reason, if any.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Rejected reports whether err is a refused command with the given reason.
func Rejected(err error, reason engine.Reason) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == string(reason)
}

type Client struct {
	base     string
	http     *http.Client
	playerID string
}

func New(baseURL, playerID string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc, playerID: playerID}
}

func (c *Client) PlayerID() string { return c.playerID }

func (c *Client) do(ctx context.Context, method, path string, body any) (types.Envelope, error) {
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return types.Envelope{}, err
		}
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return types.Envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.Envelope{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env types.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return types.Envelope{}, fmt.Errorf("%s %s: decode response (HTTP %d): %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return env, ErrNotFound
	}
	if resp.StatusCode >= 300 || !env.Success {
		return env, &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	return env, nil
}

func draftOf(env types.Envelope) (engine.Draft, error) {
	if env.DraftInstance == nil {
		return engine.Draft{}, errors.New("response carried no draft")
	}
	return *env.DraftInstance, nil
}

// Create starts a draft hosted by this client's player.
func (c *Client) Create(ctx context.Context, name string) (engine.Draft, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/drafts", types.CreateDraftRequest{PlayerID: c.playerID, Name: name})
	if err != nil {
		return engine.Draft{}, err
	}
	return draftOf(env)
}

func (c *Client) Get(ctx context.Context, id string) (engine.Draft, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/drafts/"+url.PathEscape(engine.NormalizeID(id)), nil)
	if err != nil {
		return engine.Draft{}, err
	}
	return draftOf(env)
}

// Join returns the draft and the server's message ("Rejoined draft." and
// similar), which is empty for a first join.
func (c *Client) Join(ctx context.Context, id, name string) (engine.Draft, string, error) {
	env, err := c.do(ctx, http.MethodPost, c.draftPath(id, "join"), types.JoinRequest{PlayerID: c.playerID, Name: name})
	if err != nil {
		return engine.Draft{}, "", err
	}
	d, err := draftOf(env)
	return d, env.Message, err
}

func (c *Client) SetReady(ctx context.Context, id string, ready bool) (engine.Draft, error) {
	env, err := c.do(ctx, http.MethodPost, c.draftPath(id, "ready"), types.ReadyRequest{PlayerID: c.playerID, IsReady: ready})
	if err != nil {
		return engine.Draft{}, err
	}
	return draftOf(env)
}

func (c *Client) Select(ctx context.Context, id, championID string) (engine.Draft, error) {
	env, err := c.do(ctx, http.MethodPost, c.draftPath(id, "select"), types.SelectRequest{PlayerID: c.playerID, ChampionID: championID})
	if err != nil {
		return engine.Draft{}, err
	}
	return draftOf(env)
}

func (c *Client) Champions(ctx context.Context) ([]engine.Champion, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/champions", nil)
	if err != nil {
		return nil, err
	}
	return env.Champions, nil
}

func (c *Client) draftPath(id, action string) string {
	return "/api/drafts/" + url.PathEscape(engine.NormalizeID(id)) + "/" + action
}
