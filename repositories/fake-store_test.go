package repositories

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"siramm-project/web-service/credentials"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// fakeStore answers every request with the next queued response for its
// "METHOD path" key, or 500 when nothing is queued.
type fakeStore struct {
	mu        sync.Mutex
	responses map[string][]fakeResponse
	requests  []recordedRequest
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeStore(t *testing.T) (*fakeStore, *httptest.Server) {
	t.Helper()
	fs := &fakeStore{responses: make(map[string][]fakeResponse)}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (f *fakeStore) on(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	f.responses[key] = append(f.responses[key], fakeResponse{status: status, body: body})
}

func (f *fakeStore) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})
	key := r.Method + " " + r.URL.Path
	queue := f.responses[key]
	resp := fakeResponse{status: http.StatusInternalServerError, body: `{"message":"no response queued"}`}
	if len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			f.responses[key] = queue[1:]
		}
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (f *fakeStore) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newTestRemote(srv *httptest.Server) *Remote {
	return NewRemote(srv.URL+"/api", srv.Client(), NewBreaker("test", time.Minute, 10))
}

func newTestTasks(srv *httptest.Server, token string) (*TaskRepository, *credentials.Static) {
	creds := credentials.NewStatic(token)
	return NewTaskRepository(newTestRemote(srv), creds), creds
}
