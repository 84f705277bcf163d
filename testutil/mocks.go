// Package testutil provides shared fakes for package tests: an in-memory
// ban store, a scriptable chat transport, and a mock Twitch Helix server.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MemStore is an in-memory ban store for engine tests.
type MemStore struct {
	mu      sync.Mutex
	Users   []string
	Saves   int
	LoadErr error
	SaveErr error
}

func (s *MemStore) Load(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return append([]string(nil), s.Users...), nil
}

func (s *MemStore) Save(ctx context.Context, users []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Saves++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Users = append([]string(nil), users...)
	return nil
}

// Saved returns the last persisted ban set.
func (s *MemStore) Saved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Users...)
}

// SaveCount returns how many Save calls were made.
func (s *MemStore) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Saves
}

// FakeTransport is a scriptable chat transport for engine tests. The error
// fields apply to the next matching call; Joined and Parted record call order.
type FakeTransport struct {
	mu      sync.Mutex
	Joined  []string
	Parted  []string
	JoinErr error
	PartErr error

	// JoinGate, when non-nil, blocks Join until the gate channel is closed,
	// letting tests hold a switch in flight.
	JoinGate chan struct{}
}

func (t *FakeTransport) Connect(ctx context.Context) error { return nil }

func (t *FakeTransport) Join(ctx context.Context, channel string) error {
	t.mu.Lock()
	gate := t.JoinGate
	t.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.JoinErr != nil {
		return t.JoinErr
	}
	t.Joined = append(t.Joined, channel)
	return nil
}

func (t *FakeTransport) Part(ctx context.Context, channel string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.PartErr != nil {
		return t.PartErr
	}
	t.Parted = append(t.Parted, channel)
	return nil
}

func (t *FakeTransport) Disconnect() error { return nil }

// JoinedChannels returns a copy of the join call log.
func (t *FakeTransport) JoinedChannels() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.Joined...)
}

// PartedChannels returns a copy of the part call log.
func (t *FakeTransport) PartedChannels() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.Parted...)
}

// MockTwitchServer creates a test server that mocks Twitch Helix API responses
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockTwitchServer creates a new mock Twitch API server
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockUserResponse adds a handler for /helix/users endpoint
func (m *MockTwitchServer) MockUserResponse(userID, login string) {
	m.Handlers["/helix/users"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"data": []map[string]string{
				{"id": userID, "login": login},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockEmptyUserResponse makes /helix/users return no accounts.
func (m *MockTwitchServer) MockEmptyUserResponse() {
	m.Handlers["/helix/users"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]string{}}) //nolint:errcheck // test mock response
	}
}

// MockOAuthTokenResponse adds a handler for OAuth token endpoint
func (m *MockTwitchServer) MockOAuthTokenResponse(accessToken string, expiresIn int) {
	m.Handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "bearer",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}
