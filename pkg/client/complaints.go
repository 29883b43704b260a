package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/noah-isme/campus-grievance-api/internal/dto"
)

// Complaints exposes the complaint access layer.
type Complaints struct {
	client *Client
}

func listQuery(filter dto.ComplaintListRequest) url.Values {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	return query
}

// List returns the complaints visible to the signed-in user, newest first.
func (c *Complaints) List(ctx context.Context, filter dto.ComplaintListRequest) ([]dto.ComplaintResponse, error) {
	if err := c.client.validate(filter); err != nil {
		return nil, err
	}

	var items []dto.ComplaintResponse
	if _, err := c.client.authorized(ctx, http.MethodGet, "/complaints", listQuery(filter), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns one complaint in scope.
func (c *Complaints) Get(ctx context.Context, id string) (dto.ComplaintResponse, error) {
	var complaint dto.ComplaintResponse
	_, err := c.client.authorized(ctx, http.MethodGet, "/complaints/"+url.PathEscape(id), nil, nil, &complaint)
	return complaint, err
}

// Submit lodges a complaint. Invalid submissions are rejected before any request is sent.
func (c *Complaints) Submit(ctx context.Context, req dto.ComplaintCreateRequest) (dto.ComplaintResponse, error) {
	req = req.Normalize(c.client.sanitizer)
	if err := c.client.validate(req); err != nil {
		return dto.ComplaintResponse{}, err
	}

	var complaint dto.ComplaintResponse
	_, err := c.client.authorized(ctx, http.MethodPost, "/complaints", nil, req, &complaint)
	return complaint, err
}

// Resolve marks a complaint in scope as resolved.
func (c *Complaints) Resolve(ctx context.Context, id string) (dto.ComplaintResponse, error) {
	var complaint dto.ComplaintResponse
	_, err := c.client.authorized(ctx, http.MethodPatch, "/complaints/"+url.PathEscape(id)+"/resolve", nil, nil, &complaint)
	return complaint, err
}

// Dashboard returns the statistics for the signed-in user's scope.
func (c *Complaints) Dashboard(ctx context.Context) (dto.DashboardResponse, error) {
	var dashboard dto.DashboardResponse
	_, err := c.client.authorized(ctx, http.MethodGet, "/dashboard", nil, nil, &dashboard)
	return dashboard, err
}

type socketMessage struct {
	Type     string                 `json:"type"`
	Snapshot *dto.ComplaintSnapshot `json:"snapshot,omitempty"`
}

// Subscription is a live complaint list. Snapshots closes when the server ends the stream,
// the context is cancelled or Close is called; Err then reports why.
type Subscription struct {
	conn      *websocket.Conn
	snapshots chan dto.ComplaintSnapshot
	cancel    context.CancelFunc
	done      chan struct{}

	mu  sync.Mutex
	err error
}

// Snapshots delivers full result sets, the first being the current one.
func (s *Subscription) Snapshots() <-chan dto.ComplaintSnapshot {
	return s.snapshots
}

// Err returns the reason the stream ended, or nil after a clean close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the subscription and waits for the reader to exit.
func (s *Subscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Watch opens the live complaint feed for the signed-in user.
func (c *Complaints) Watch(ctx context.Context, filter dto.ComplaintListRequest) (*Subscription, error) {
	if err := c.client.validate(filter); err != nil {
		return nil, err
	}
	token := c.client.session.AccessToken()
	if token == "" {
		return nil, ErrUnauthenticated
	}

	endpoint := c.client.endpoint("/complaints/ws", listQuery(filter))
	endpoint = "ws" + strings.TrimPrefix(endpoint, "http")

	conn, err := c.dial(ctx, endpoint, token)
	if errors.Is(err, ErrUnauthenticated) {
		if token, err = c.client.session.renew(ctx, token); err != nil {
			return nil, err
		}
		conn, err = c.dial(ctx, endpoint, token)
		if errors.Is(err, ErrUnauthenticated) {
			c.client.session.clear()
		}
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		conn:      conn,
		snapshots: make(chan dto.ComplaintSnapshot, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadlineSoon())
		_ = conn.Close()
	}()
	go sub.read(ctx)

	return sub, nil
}

func (c *Complaints) dial(ctx context.Context, endpoint, token string) (*websocket.Conn, error) {
	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, resp, err := c.client.dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode >= http.StatusBadRequest {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("open complaint feed: %w", ErrConnectivity)
	}
	return conn, nil
}

func (s *Subscription) read(ctx context.Context) {
	defer close(s.done)
	defer close(s.snapshots)
	defer s.cancel()

	for {
		var msg socketMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				s.fail(closeError(err))
			}
			return
		}
		if msg.Type != "snapshot" || msg.Snapshot == nil {
			continue
		}

		// Keep only the newest unread snapshot.
		select {
		case <-s.snapshots:
		default:
		}
		select {
		case s.snapshots <- *msg.Snapshot:
		case <-ctx.Done():
			return
		}
	}
}

func closeError(err error) error {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return fmt.Errorf("complaint feed: %w", ErrConnectivity)
	}
	switch closeErr.Code {
	case websocket.CloseNormalClosure:
		return nil
	case 4401, 4403:
		return fmt.Errorf("complaint feed closed: %s: %w", closeErr.Text, ErrUnauthenticated)
	case 4400:
		return &ValidationError{Fields: map[string]string{"filter": closeErr.Text}}
	default:
		return fmt.Errorf("complaint feed closed (%d): %w", closeErr.Code, ErrConnectivity)
	}
}

func deadlineSoon() time.Time {
	return time.Now().Add(time.Second)
}
