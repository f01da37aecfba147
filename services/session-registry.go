package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"siramm-project/web-service/credentials"
	"siramm-project/web-service/logging"
	"siramm-project/web-service/models"
	"siramm-project/web-service/repositories"
)

// Session is one signed-in client: its token, the repositories bound to it
// and the task views it has opened.
type Session struct {
	ID          string
	Credentials credentials.Provider
	Tasks       *repositories.TaskRepository
	Projects    *repositories.ProjectRepository
	Users       *repositories.UserRepository

	journal repositories.MutationJournal
	// lastSeen is guarded by the registry lock.
	lastSeen time.Time

	mu    sync.Mutex
	views map[string]*TaskCollection
}

// Global returns the task-wide view, loading it on first use.
func (s *Session) Global(ctx context.Context) (*TaskCollection, error) {
	return s.collection(ctx, GlobalView, func(context.Context) (*TaskCollection, error) {
		return NewGlobalCollection(s.Tasks, s.journal), nil
	})
}

// Project returns the view of one project, loading the project (for its
// scope options) and its tasks on first use.
func (s *Session) Project(ctx context.Context, projectID int) (*TaskCollection, error) {
	return s.collection(ctx, ProjectView(projectID), func(ctx context.Context) (*TaskCollection, error) {
		project, err := s.Projects.Get(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if project.ID == 0 {
			project.ID = projectID
		}
		return NewProjectCollection(s.Tasks, s.journal, project), nil
	})
}

func (s *Session) collection(ctx context.Context, key string, build func(context.Context) (*TaskCollection, error)) (*TaskCollection, error) {
	s.mu.Lock()
	c, ok := s.views[key]
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	c, err := build(ctx)
	if err != nil {
		return nil, err
	}
	// Not cached on auth failure, so the next request after sign-in loads again.
	if err := c.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.views[key]; ok {
		return existing, nil
	}
	s.views[key] = c
	return c, nil
}

// Forget drops a cached view, e.g. after its project was deleted.
func (s *Session) Forget(key string) {
	s.mu.Lock()
	c := s.views[key]
	delete(s.views, key)
	s.mu.Unlock()
	if c != nil {
		c.Wait()
	}
}

// Mutations lists pending or failed writes of the views this session opened.
func (s *Session) Mutations(ctx context.Context) ([]models.PendingMutation, error) {
	all, err := s.journal.List(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PendingMutation, 0, len(all))
	for _, m := range all {
		if _, ok := s.views[m.View]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// Wait blocks until background work of every view has finished.
func (s *Session) Wait() {
	s.mu.Lock()
	views := make([]*TaskCollection, 0, len(s.views))
	for _, c := range s.views {
		views = append(views, c)
	}
	s.mu.Unlock()
	for _, c := range views {
		c.Wait()
	}
}

// DefaultSessionIdleTimeout is how long an unused session is kept.
const DefaultSessionIdleTimeout = 12 * time.Hour

// SessionRegistry maps session ids to sessions. All sessions share one
// transport and one mutation journal. A session is dropped once its token is
// cleared or expires, or after it sat unused for the idle timeout.
type SessionRegistry struct {
	remote      *repositories.Remote
	journal     repositories.MutationJournal
	taskOpts    []repositories.TaskOption
	now         func() time.Time
	idleTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	// retired tracks background work of dropped sessions until Shutdown.
	retired sync.WaitGroup
}

func NewSessionRegistry(remote *repositories.Remote, journal repositories.MutationJournal, taskOpts ...repositories.TaskOption) *SessionRegistry {
	if journal == nil {
		journal = repositories.NewMemoryJournal()
	}
	return &SessionRegistry{
		remote:      remote,
		journal:     journal,
		taskOpts:    taskOpts,
		now:         time.Now,
		idleTimeout: DefaultSessionIdleTimeout,
		sessions:    make(map[string]*Session),
	}
}

// SetIdleTimeout changes how long an unused session is kept; 0 keeps sessions
// until their token stops working.
func (r *SessionRegistry) SetIdleTimeout(d time.Duration) {
	r.mu.Lock()
	r.idleTimeout = d
	r.mu.Unlock()
}

// Open starts a session for token. An empty or expired token is refused with
// models.ErrAuthenticationRequired.
func (r *SessionRegistry) Open(token string) (*Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" || credentials.Expired(token, r.now()) {
		return nil, models.ErrAuthenticationRequired
	}

	creds := credentials.NewStatic(token)
	s := &Session{
		ID:          uuid.NewString(),
		Credentials: creds,
		Tasks:       repositories.NewTaskRepository(r.remote, creds, r.taskOpts...),
		Projects:    repositories.NewProjectRepository(r.remote, creds),
		Users:       repositories.NewUserRepository(r.remote, creds),
		journal:     r.journal,
		views:       make(map[string]*TaskCollection),
	}

	r.mu.Lock()
	now := r.now()
	for id, old := range r.sessions {
		if r.idle(old, now) {
			r.dropLocked(id, old, "idle")
		}
	}
	s.lastSeen = now
	r.sessions[s.ID] = s
	r.mu.Unlock()

	logging.Logger.Infof("Event ID: SESSION_OPENED, Description: session %s", s.ID)
	return s, nil
}

// Get returns a live session. A session whose token was cleared by the store
// or has expired, or that sat idle too long, is dropped and reported as
// models.ErrAuthenticationRequired.
func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrAuthenticationRequired
	}
	now := r.now()
	if r.idle(s, now) {
		r.dropLocked(id, s, "idle")
		return nil, models.ErrAuthenticationRequired
	}
	if _, err := s.Credentials.Get(context.Background()); err != nil {
		r.dropLocked(id, s, "signed out")
		return nil, models.ErrAuthenticationRequired
	}
	s.lastSeen = now
	return s, nil
}

func (r *SessionRegistry) idle(s *Session, now time.Time) bool {
	return r.idleTimeout > 0 && now.Sub(s.lastSeen) > r.idleTimeout
}

// dropLocked forgets a session. Deletes it already started keep running and
// Shutdown still waits for them.
func (r *SessionRegistry) dropLocked(id string, s *Session, reason string) {
	delete(r.sessions, id)
	r.retire(s)
	logging.Logger.Infof("Event ID: SESSION_DROPPED, Description: session %s: %s", id, reason)
}

func (r *SessionRegistry) retire(s *Session) {
	r.retired.Add(1)
	go func() {
		defer r.retired.Done()
		s.Wait()
	}()
}

// Close forgets the session and clears its credentials. Background deletes
// already started still run to completion.
func (r *SessionRegistry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return models.ErrNotFound
	}
	r.retire(s)
	if err := s.Credentials.Clear(ctx); err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: SESSION_CLOSED, Description: session %s", id)
	return nil
}

// Shutdown waits for the background work of every session.
func (r *SessionRegistry) Shutdown() {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()
	for _, s := range sessions {
		s.Wait()
	}
	r.retired.Wait()
}

// IsAuthError reports whether err should send the client to sign in.
func IsAuthError(err error) bool {
	return errors.Is(err, models.ErrAuthenticationRequired)
}
