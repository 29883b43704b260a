package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
)

var asha = dto.UserResponse{ID: "u-asha", Email: "asha@campus.edu", Name: "Asha", Branch: "Computer Science", Role: models.RoleStudent}

type fakeServer struct {
	srv *httptest.Server

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	generation   int
	revoked      []string
	calls        map[string]int
	lastQuery    string
	socketFrames []dto.ComplaintSnapshot
	socketClose  int
	holdSocket   bool
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{accessToken: "access-1", refreshToken: "refresh-1", generation: 1, calls: map[string]int{}, socketClose: 4403}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", f.login)
	mux.HandleFunc("/api/v1/auth/register", f.register)
	mux.HandleFunc("/api/v1/auth/me", f.me)
	mux.HandleFunc("/api/v1/auth/refresh", f.refresh)
	mux.HandleFunc("/api/v1/auth/logout", f.logout)
	mux.HandleFunc("/api/v1/complaints", f.complaints)
	mux.HandleFunc("/api/v1/complaints/ws", f.socket)
	mux.HandleFunc("/api/v1/admin/users", f.users)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) newClient(t *testing.T, store SnapshotStore) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: f.srv.URL, Store: store, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return c
}

func (f *fakeServer) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeServer) query() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

func (f *fakeServer) revokedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}

// expireAccess invalidates the access token handed out last, as if it aged out mid-session.
func (f *fakeServer) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessToken = "expired-" + f.accessToken
}

func (f *fakeServer) revokeRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshToken = "revoked-" + f.refreshToken
}

func (f *fakeServer) track(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.Method+" "+r.URL.Path]++
	f.lastQuery = r.URL.RawQuery
}

func (f *fakeServer) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return r.Header.Get("Authorization") == "Bearer "+f.accessToken
}

func writeEnvelope(w http.ResponseWriter, status int, message string, data, meta, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": status < http.StatusBadRequest,
		"message": message,
		"data":    data,
		"meta":    meta,
		"details": details,
	})
}

func denied(w http.ResponseWriter) {
	writeEnvelope(w, http.StatusUnauthorized, "authentication required", nil, nil, map[string]string{"redirect": access.PathSignIn})
}

func (f *fakeServer) tokens() dto.AuthResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return dto.AuthResponse{AccessToken: f.accessToken, RefreshToken: f.refreshToken, ExpiresAt: time.Now().Add(time.Minute), User: asha}
}

func (f *fakeServer) login(w http.ResponseWriter, r *http.Request) {
	f.track(r)
	var req dto.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	switch {
	case req.Password != "secret1":
		writeEnvelope(w, http.StatusUnauthorized, "invalid credentials", nil, nil, nil)
	case req.Email == "orphan@campus.edu":
		writeEnvelope(w, http.StatusNotFound, "profile not found", nil, nil, nil)
	default:
		writeEnvelope(w, http.StatusOK, "signed in", f.tokens(), nil, nil)
	}
}

func (f *fakeServer) register(w http.ResponseWriter, r *http.Request) {
	f.track(r)
	var req dto.RegisterRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Email == "taken@campus.edu" {
		writeEnvelope(w, http.StatusConflict, "email already registered", nil, nil, nil)
		return
	}
	writeEnvelope(w, http.StatusCreated, "account registered", dto.UserResponse{ID: "u-new", Email: req.Email, Name: req.Name, Branch: req.Branch, Role: models.RoleStudent}, nil, nil)
}

func (f *fakeServer) me(w http.ResponseWriter, r *http.Request) {
	f.track(r)
	if !f.authorized(r) {
		denied(w)
		return
	}
	writeEnvelope(w, http.StatusOK, "current user", dto.MeResponse{User: asha, Navigation: access.NavigationFor(asha.Role)}, nil, nil)
}

func (f *fakeServer) refresh(w http.ResponseWriter, r *http.Request) {
	f.track(r)
	var req dto.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	if req.RefreshToken != f.refreshToken {
		f.mu.Unlock()
		writeEnvelope(w, http.StatusUnauthorized, "invalid or expired token", nil, nil, nil)
		return
	}
	f.generation++
	f.accessToken = fmt.Sprintf("access-%d", f.generation)
	f.refreshToken = fmt.Sprintf("refresh-%d", f.generation)
	f.mu.Unlock()

	writeEnvelope(w, http.StatusOK, "session refreshed", f.tokens(), nil, nil)
}

func (f *fakeServer) logout(w http.ResponseWriter, r *http.Request) {
	f.track(r)
	var req dto.LogoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.revoked = append(f.revoked, req.RefreshToken)
	f.mu.Unlock()
	writeEnvelope(w, http.StatusOK, "signed out", nil, nil, nil)
}

func (f *fakeServer) complaints(w http.ResponseWriter, r *http.Request) {
	f.track(r)
	if !f.authorized(r) {
		denied(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		items := []dto.ComplaintResponse{{ID: "c-1", AuthorEmail: asha.Email, Category: models.CategoryHostel, Status: models.ComplaintStatusPending}}
		writeEnvelope(w, http.StatusOK, "complaints", items, map[string]int{"count": len(items)}, nil)
	case http.MethodPost:
		var req dto.ComplaintCreateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeEnvelope(w, http.StatusCreated, "complaint submitted", dto.ComplaintResponse{
			ID:          "c-2",
			AuthorEmail: asha.Email,
			Category:    models.ComplaintCategory(req.Category),
			Description: req.Description,
			Status:      models.ComplaintStatusPending,
		}, nil, nil)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeServer) socket(w http.ResponseWriter, r *http.Request) {
	f.track(r)
	if !f.authorized(r) {
		denied(w)
		return
	}

	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	f.mu.Lock()
	frames := append([]dto.ComplaintSnapshot(nil), f.socketFrames...)
	code := f.socketClose
	hold := f.holdSocket
	f.mu.Unlock()

	for i := range frames {
		if err := conn.WriteJSON(socketMessage{Type: "snapshot", Snapshot: &frames[i]}); err != nil {
			return
		}
	}

	if hold {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, "session ended"))
	_, _, _ = conn.ReadMessage()
}

func (f *fakeServer) users(w http.ResponseWriter, r *http.Request) {
	f.track(r)
	if !f.authorized(r) {
		denied(w)
		return
	}
	items := []dto.AdminUserResponse{{ID: asha.ID, Email: asha.Email, Name: asha.Name, Branch: asha.Branch, Role: asha.Role}}
	writeEnvelope(w, http.StatusOK, "users retrieved", items, map[string]interface{}{
		"pagination":  dto.PaginationMeta{Page: 1, PageSize: 20, TotalItems: 1, TotalPages: 1},
		"role_counts": map[string]int64{"student": 1},
	}, nil)
}
