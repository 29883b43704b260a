package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
)

// SessionEvent carries the full session state after a change.
type SessionEvent struct {
	Sequence uint64
	Identity *models.Identity
	Loading  bool
}

type snapshot struct {
	User         dto.UserResponse `json:"user"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
}

// Session is the Auth Context: the signed-in identity, its tokens and the loading flag.
// The mutex is never held across a network call.
type Session struct {
	client *Client
	store  SnapshotStore

	// renewMu serialises token refreshes so concurrent 401s rotate the pair once.
	renewMu sync.Mutex

	mu           sync.Mutex
	identity     *models.Identity
	accessToken  string
	refreshToken string
	loading      bool
	sequence     uint64
	subscribers  map[uint64]chan SessionEvent
	nextSub      uint64
}

func newSession(client *Client, store SnapshotStore) *Session {
	return &Session{
		client:      client,
		store:       store,
		loading:     true,
		subscribers: make(map[uint64]chan SessionEvent),
	}
}

// Current returns a copy of the signed-in identity, or nil.
func (s *Session) Current() *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	identity := *s.identity
	return &identity
}

// Loading reports whether the persisted session is still being restored.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// AccessToken returns the bearer token for the current session.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// Guard evaluates a protected page for the current session.
func (s *Session) Guard(allowed ...models.Role) access.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return access.Decide(s.identity, allowed, s.loading)
}

// GuardPath evaluates a named page using the shared route table.
func (s *Session) GuardPath(path string) access.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return access.DecidePath(path, s.identity, s.loading)
}

// Subscribe streams session changes starting with the current state. A slow reader only
// loses superseded events. Call release to stop receiving.
func (s *Session) Subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	ch <- s.eventLocked()
	s.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, release
}

func (s *Session) eventLocked() SessionEvent {
	event := SessionEvent{Sequence: s.sequence, Loading: s.loading}
	if s.identity != nil {
		identity := *s.identity
		event.Identity = &identity
	}
	return event
}

// publishLocked delivers the current state to every subscriber, replacing any unread event.
func (s *Session) publishLocked() {
	s.sequence++
	event := s.eventLocked()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- event
	}
}

func (s *Session) signIn(user dto.UserResponse, accessToken, refreshToken string) error {
	data, err := json.Marshal(snapshot{User: user, AccessToken: accessToken, RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	if err := s.store.Save(SnapshotKey, data); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	identity := user.Identity()
	s.mu.Lock()
	s.identity = &identity
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.loading = false
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

func (s *Session) clear() {
	if err := s.store.Delete(SnapshotKey); err != nil {
		s.client.logger.Warn().Err(err).Msg("failed to delete persisted session")
	}

	s.mu.Lock()
	changed := s.identity != nil || s.loading
	s.identity = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.loading = false
	if changed {
		s.publishLocked()
	}
	s.mu.Unlock()
}

func (s *Session) finishLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		s.loading = false
		s.publishLocked()
	}
}

// Restore reloads the persisted session and verifies it with the server, refreshing the
// tokens once if the access token has expired. Loading is false afterwards whatever happens.
// A snapshot the server rejects is cleared; a connectivity failure leaves it on disk.
func (s *Session) Restore(ctx context.Context) error {
	defer s.finishLoading()

	raw, err := s.store.Load(SnapshotKey)
	if errors.Is(err, ErrSnapshotNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	var saved snapshot
	if err := json.Unmarshal(raw, &saved); err != nil || saved.AccessToken == "" {
		s.client.logger.Warn().Msg("discarding unreadable session snapshot")
		s.clear()
		return nil
	}

	var me dto.MeResponse
	_, err = s.client.do(ctx, http.MethodGet, "/auth/me", nil, saved.AccessToken, nil, &me)
	if errors.Is(err, ErrUnauthenticated) && saved.RefreshToken != "" {
		var refreshed dto.AuthResponse
		_, refreshErr := s.client.do(ctx, http.MethodPost, "/auth/refresh", nil, "", dto.RefreshRequest{RefreshToken: saved.RefreshToken}, &refreshed)
		if refreshErr != nil {
			err = refreshErr
		} else {
			saved.AccessToken = refreshed.AccessToken
			saved.RefreshToken = refreshed.RefreshToken
			_, err = s.client.do(ctx, http.MethodGet, "/auth/me", nil, saved.AccessToken, nil, &me)
		}
	}

	if err != nil {
		if errors.Is(err, ErrConnectivity) {
			return err
		}
		s.clear()
		return fmt.Errorf("restore session: %w", ErrUnauthenticated)
	}

	return s.signIn(me.User, saved.AccessToken, saved.RefreshToken)
}

// renew exchanges the refresh token for a new pair after the server rejected stale. When
// another call already rotated the pair, the current access token is returned as is. A refresh
// the server rejects ends the session; a connectivity failure leaves it in place.
func (s *Session) renew(ctx context.Context, stale string) (string, error) {
	s.renewMu.Lock()
	defer s.renewMu.Unlock()

	s.mu.Lock()
	current, refreshToken := s.accessToken, s.refreshToken
	s.mu.Unlock()

	if current == "" || refreshToken == "" {
		return "", ErrUnauthenticated
	}
	if current != stale {
		return current, nil
	}

	var refreshed dto.AuthResponse
	_, err := s.client.do(ctx, http.MethodPost, "/auth/refresh", nil, "", dto.RefreshRequest{RefreshToken: refreshToken}, &refreshed)
	if err != nil {
		if errors.Is(err, ErrConnectivity) {
			return "", err
		}
		s.client.logger.Info().Err(err).Msg("refresh rejected, ending session")
		s.clear()
		return "", fmt.Errorf("refresh session: %w", ErrUnauthenticated)
	}

	if err := s.signIn(refreshed.User, refreshed.AccessToken, refreshed.RefreshToken); err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Login signs in with email and password.
func (s *Session) Login(ctx context.Context, email, password string) (models.Identity, error) {
	req := dto.LoginRequest{Email: strings.ToLower(strings.TrimSpace(email)), Password: password}
	if err := s.client.validate(req); err != nil {
		return models.Identity{}, err
	}

	var resp dto.AuthResponse
	if _, err := s.client.do(ctx, http.MethodPost, "/auth/login", nil, "", req, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Status {
			case http.StatusUnauthorized:
				return models.Identity{}, ErrInvalidCredentials
			case http.StatusNotFound:
				return models.Identity{}, ErrProfileNotFound
			}
		}
		return models.Identity{}, err
	}

	if err := s.signIn(resp.User, resp.AccessToken, resp.RefreshToken); err != nil {
		return models.Identity{}, err
	}
	return resp.User.Identity(), nil
}

// Register creates a student account. It does not sign in.
func (s *Session) Register(ctx context.Context, req dto.RegisterRequest) (dto.UserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.Branch = strings.TrimSpace(req.Branch)
	if err := s.client.validate(req); err != nil {
		return dto.UserResponse{}, err
	}

	var user dto.UserResponse
	if _, err := s.client.do(ctx, http.MethodPost, "/auth/register", nil, "", req, &user); err != nil {
		if errors.Is(err, ErrConflict) {
			return dto.UserResponse{}, ErrEmailTaken
		}
		return dto.UserResponse{}, err
	}
	return user, nil
}

// Logout clears the local session and revokes the refresh token on the server.
// Local state is cleared even when the server cannot be reached.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.refreshToken
	s.mu.Unlock()

	s.clear()

	if refreshToken == "" {
		return nil
	}
	_, err := s.client.do(ctx, http.MethodPost, "/auth/logout", nil, "", dto.LogoutRequest{RefreshToken: refreshToken}, nil)
	return err
}
