package repositories

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siramm-project/web-service/credentials"
	"siramm-project/web-service/models"
)

func TestProjectRepository_GetNormalizesJobScope(t *testing.T) {
	store, srv := newFakeStore(t)
	store.on(http.MethodGet, "/api/projects/3", http.StatusOK, `{"id":3,"name":"Rams HQ","job_scope":"invoice, website,","admin_id":1,"technician_id":2}`)
	repo := NewProjectRepository(newTestRemote(srv), credentials.NewStatic("tok"))

	p, err := repo.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, models.JobScope{"invoice", "website"}, p.JobScope)
	assert.Equal(t, 2, p.TechnicianID)
}

func TestProjectRepository_CreateSendsJoinedJobScope(t *testing.T) {
	store, srv := newFakeStore(t)
	store.on(http.MethodPost, "/api/projects", http.StatusCreated, `{"id":4,"name":"New","job_scope":["invoice","website"]}`)
	repo := NewProjectRepository(newTestRemote(srv), credentials.NewStatic("tok"))

	p, err := repo.Create(context.Background(), models.Project{Name: "New", JobScope: models.JobScope{"invoice", "website"}})
	require.NoError(t, err)
	assert.Equal(t, 4, p.ID)

	body := store.recorded()[0].Body
	assert.Equal(t, "invoice,website", body["job_scope"])
	assert.Equal(t, "New", body["name"])
}

func TestProjectRepository_GetMissing(t *testing.T) {
	store, srv := newFakeStore(t)
	store.on(http.MethodGet, "/api/projects/99", http.StatusNotFound, `{}`)
	repo := NewProjectRepository(newTestRemote(srv), credentials.NewStatic("tok"))

	_, err := repo.Get(context.Background(), 99)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_List(t *testing.T) {
	store, srv := newFakeStore(t)
	store.on(http.MethodGet, "/api/users", http.StatusOK, `[{"id":1,"name":"Alice"},{"id":2,"name":"Bob"}]`)
	repo := NewUserRepository(newTestRemote(srv), credentials.NewStatic("tok"))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Bob", users[1].Name)
}
