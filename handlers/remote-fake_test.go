package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"siramm-project/web-service/repositories"
)

const testToken = "tok"

// remoteStore is an in-memory remote REST API keyed by the wire shapes.
type remoteStore struct {
	mu       sync.Mutex
	tasks    []map[string]any
	projects map[int]map[string]any
	nextID   int
	// failPut makes task updates answer 500.
	failPut bool
	deletes int
}

func newRemoteStore() *remoteStore {
	return &remoteStore{
		tasks: []map[string]any{
			{"id": 1, "project_id": 7, "action": "Survey", "status": "not_started", "scope": "Plumbing", "attachment": "a.pdf,b.pdf", "assigned_to": 3, "due_date": "2024-06-03T00:00:00Z"},
			{"id": 2, "project_id": 7, "action": "Quote", "status": "completed", "scope": "Invoice", "attachment": "", "assigned_to": "4"},
			{"id": 3, "project_id": 8, "action": "Other", "status": "blocked", "scope": "task", "attachment": nil, "assigned_to": nil},
		},
		projects: map[int]map[string]any{
			7: {"id": 7, "name": "Kitchen", "job_scope": "Plumbing, Electrical"},
			8: {"id": 8, "name": "Garage", "job_scope": nil},
		},
		nextID: 100,
	}
}

func (s *remoteStore) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *remoteStore) serve(t *testing.T) *repositories.Remote {
	t.Helper()
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		json.NewEncoder(w).Encode(s.tasks)
	}).Methods(http.MethodGet)

	api.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		var in map[string]any
		json.NewDecoder(r.Body).Decode(&in)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.nextID++
		in["id"] = s.nextID
		s.tasks = append(s.tasks, in)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(in)
	}).Methods(http.MethodPost)

	api.HandleFunc("/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		id, _ := strconv.Atoi(mux.Vars(r)["id"])
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failPut {
			http.Error(w, "database unavailable", http.StatusInternalServerError)
			return
		}
		var in map[string]any
		json.NewDecoder(r.Body).Decode(&in)
		in["id"] = id
		in["updated_at"] = "2024-06-02T10:00:00Z"
		for i, task := range s.tasks {
			if task["id"] == id || task["id"] == float64(id) {
				s.tasks[i] = in
			}
		}
		json.NewEncoder(w).Encode(in)
	}).Methods(http.MethodPut)

	api.HandleFunc("/tasks/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		id, _ := strconv.Atoi(mux.Vars(r)["id"])
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, task := range s.tasks {
			if task["id"] == id {
				task["status"] = in["status"]
				json.NewEncoder(w).Encode(task)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodPatch)

	api.HandleFunc("/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		s.mu.Lock()
		s.deletes++
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	api.HandleFunc("/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		id, _ := strconv.Atoi(mux.Vars(r)["id"])
		s.mu.Lock()
		defer s.mu.Unlock()
		p, ok := s.projects[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(p)
	}).Methods(http.MethodGet)

	api.HandleFunc("/projects/{id}/tasks", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		id, _ := strconv.Atoi(mux.Vars(r)["id"])
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []map[string]any{}
		for _, task := range s.tasks {
			if task["project_id"] == id || task["project_id"] == float64(id) {
				out = append(out, task)
			}
		}
		json.NewEncoder(w).Encode(out)
	}).Methods(http.MethodGet)

	api.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{{"id": 3, "name": "Ana"}, {"id": 4, "name": "Marko"}})
	}).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return repositories.NewRemote(srv.URL+"/api", srv.Client(), repositories.NewBreaker("test", time.Second, 50))
}
