package repositories

import (
	"context"
	"fmt"
	"net/http"

	"siramm-project/web-service/credentials"
	"siramm-project/web-service/models"
)

// UserRepository is read-only; users are only needed for assignee selection.
type UserRepository struct {
	remote *Remote
	creds  credentials.Provider
}

func NewUserRepository(remote *Remote, creds credentials.Provider) *UserRepository {
	return &UserRepository{remote: remote, creds: creds}
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if _, err := r.remote.call(ctx, r.creds, "list users", http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (r *UserRepository) Get(ctx context.Context, id int) (models.User, error) {
	var user models.User
	if _, err := r.remote.call(ctx, r.creds, fmt.Sprintf("get user %d", id), http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}
