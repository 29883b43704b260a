// Package client is a Go SDK for the campus grievance API. It owns the signed-in session,
// validates submissions locally and follows the live complaint feed over WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-grievance-api/internal/dto"
)

const apiPrefix = "/api/v1"

// Config configures a Client.
type Config struct {
	// BaseURL is the server origin, e.g. https://grievance.example.edu.
	BaseURL    string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	// Store persists the session. Defaults to a MemoryStore.
	Store  SnapshotStore
	Logger zerolog.Logger
}

// Client talks to one API server on behalf of one session.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	dialer    *websocket.Dialer
	logger    zerolog.Logger
	validator *validator.Validate
	sanitizer *bluemonday.Policy

	session    *Session
	Complaints *Complaints
	Users      *Users
}

// New builds a client. The session starts in the loading state until Restore runs.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}

	c := &Client{
		baseURL:   base,
		http:      httpClient,
		dialer:    dialer,
		logger:    cfg.Logger.With().Str("component", "grievance_client").Logger(),
		validator: dto.NewValidator(),
		sanitizer: bluemonday.StrictPolicy(),
	}
	c.session = newSession(c, store)
	c.Complaints = &Complaints{client: c}
	c.Users = &Users{client: c}
	return c, nil
}

// Session returns the Auth Context owned by this client.
func (c *Client) Session() *Session {
	return c.session
}

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Meta    json.RawMessage        `json:"meta"`
	Details map[string]interface{} `json:"details"`
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request and decodes the envelope. Data is decoded into out when both are present.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body, out interface{}) (envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return envelope{}, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return envelope{}, fmt.Errorf("%s %s: %w", method, path, ErrConnectivity)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, fmt.Errorf("read %s %s: %w", method, path, ErrConnectivity)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= http.StatusBadRequest {
				return envelope{}, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
			}
			return envelope{}, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Message, Details: env.Details}
		if resp.StatusCode == http.StatusBadRequest {
			return env, remoteValidationError(apiErr)
		}
		return env, apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env, fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return env, nil
}

// authorized sends a request with the session's access token. An expired token is renewed
// once and the request retried; a 401 after renewal ends the session.
func (c *Client) authorized(ctx context.Context, method, path string, query url.Values, body, out interface{}) (envelope, error) {
	token := c.session.AccessToken()
	if token == "" {
		return envelope{}, ErrUnauthenticated
	}

	env, err := c.do(ctx, method, path, query, token, body, out)
	if !errors.Is(err, ErrUnauthenticated) {
		return env, err
	}

	token, err = c.session.renew(ctx, token)
	if err != nil {
		return envelope{}, err
	}

	env, err = c.do(ctx, method, path, query, token, body, out)
	if errors.Is(err, ErrUnauthenticated) {
		c.session.clear()
	}
	return env, err
}

func (c *Client) validate(value interface{}) error {
	if err := c.validator.Struct(value); err != nil {
		return localValidationError(err)
	}
	return nil
}
