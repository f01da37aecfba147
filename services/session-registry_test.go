package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siramm-project/web-service/models"
	"siramm-project/web-service/repositories"
)

func remoteStore(t *testing.T, taskCalls *int32) *repositories.Remote {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(taskCalls, 1)
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "project_id": 7, "action": "Survey", "status": "not_started", "scope": "project"},
		})
	})
	mux.HandleFunc("/api/projects/7", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "name": "Kitchen", "job_scope": "Plumbing, Electrical"})
	})
	mux.HandleFunc("/api/projects/7/tasks", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "project_id": 7, "action": "Survey", "status": "not_started", "scope": "Plumbing"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return repositories.NewRemote(srv.URL+"/api", srv.Client(), repositories.NewBreaker("test", time.Second, 10))
}

func TestSessionRegistry_OpenGetClose(t *testing.T) {
	var calls int32
	reg := NewSessionRegistry(remoteStore(t, &calls), nil)

	_, err := reg.Open("  ")
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)

	s, err := reg.Open("Bearer tok")
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)

	got, err := reg.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, reg.Close(context.Background(), s.ID))
	_, err = reg.Get(s.ID)
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)
	_, err = s.Credentials.Get(context.Background())
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)

	assert.ErrorIs(t, reg.Close(context.Background(), s.ID), models.ErrNotFound)
}

func TestSessionRegistry_DropsSessionSignedOutByStore(t *testing.T) {
	var calls int32
	reg := NewSessionRegistry(remoteStore(t, &calls), nil)

	s, err := reg.Open("wrong")
	require.NoError(t, err)

	_, err = s.Global(context.Background())
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)

	_, err = reg.Get(s.ID)
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)
	assert.NotContains(t, reg.sessions, s.ID)
	reg.Shutdown()
}

func TestSessionRegistry_DropsIdleSessions(t *testing.T) {
	var calls int32
	reg := NewSessionRegistry(remoteStore(t, &calls), nil)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }
	reg.SetIdleTimeout(time.Hour)

	kept, err := reg.Open("tok")
	require.NoError(t, err)
	stale, err := reg.Open("tok")
	require.NoError(t, err)

	now = now.Add(40 * time.Minute)
	_, err = reg.Get(kept.ID)
	require.NoError(t, err)

	now = now.Add(40 * time.Minute)
	_, err = reg.Get(kept.ID)
	require.NoError(t, err)
	_, err = reg.Get(stale.ID)
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)

	now = now.Add(2 * time.Hour)
	fresh, err := reg.Open("tok")
	require.NoError(t, err)
	assert.NotContains(t, reg.sessions, kept.ID)
	assert.Contains(t, reg.sessions, fresh.ID)
	reg.Shutdown()
}

func TestSessionRegistry_RefusesExpiredToken(t *testing.T) {
	var calls int32
	reg := NewSessionRegistry(remoteStore(t, &calls), nil)

	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = reg.Open(token)
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)
}

func TestSession_ViewsAreCached(t *testing.T) {
	var calls int32
	reg := NewSessionRegistry(remoteStore(t, &calls), nil)
	s, err := reg.Open("tok")
	require.NoError(t, err)

	c1, err := s.Global(context.Background())
	require.NoError(t, err)
	c2, err := s.Global(context.Background())
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Len(t, c1.Tasks(), 1)

	p, err := s.Project(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "project-7", p.View())
	assert.Equal(t, []string{"Plumbing", "Electrical"}, p.Scopes())
}

func TestSession_AuthFailureIsNotCached(t *testing.T) {
	var calls int32
	reg := NewSessionRegistry(remoteStore(t, &calls), nil)
	s, err := reg.Open("wrong")
	require.NoError(t, err)

	_, err = s.Global(context.Background())
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)
	assert.True(t, IsAuthError(err))

	_, err = s.Global(context.Background())
	assert.ErrorIs(t, err, models.ErrAuthenticationRequired)
}

func TestSession_MutationsOfOpenedViews(t *testing.T) {
	journal := repositories.NewMemoryJournal()
	require.NoError(t, journal.Record(context.Background(), models.NewPendingMutation(GlobalView, 1, models.MutationDelete)))
	require.NoError(t, journal.Record(context.Background(), models.NewPendingMutation(ProjectView(9), 2, models.MutationUpdate)))

	var calls int32
	reg := NewSessionRegistry(remoteStore(t, &calls), journal)
	s, err := reg.Open("tok")
	require.NoError(t, err)
	_, err = s.Global(context.Background())
	require.NoError(t, err)

	pending, err := s.Mutations(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].TaskID)
}
