package repositories

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"siramm-project/web-service/credentials"
	"siramm-project/web-service/models"
)

type ProjectRepository struct {
	remote *Remote
	creds  credentials.Provider
}

func NewProjectRepository(remote *Remote, creds credentials.Provider) *ProjectRepository {
	return &ProjectRepository{remote: remote, creds: creds}
}

func (r *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if _, err := r.remote.call(ctx, r.creds, "list projects", http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

func (r *ProjectRepository) Get(ctx context.Context, id int) (models.Project, error) {
	var project models.Project
	if _, err := r.remote.call(ctx, r.creds, fmt.Sprintf("get project %d", id), http.MethodGet, fmt.Sprintf("/projects/%d", id), nil, &project); err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// Create and Update send job_scope in its comma-separated wire form.
func (r *ProjectRepository) Create(ctx context.Context, project models.Project) (models.Project, error) {
	var created models.Project
	if _, err := r.remote.call(ctx, r.creds, "create project", http.MethodPost, "/projects", projectPayload(project), &created); err != nil {
		return models.Project{}, err
	}
	return created, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id int, project models.Project) (models.Project, error) {
	var updated models.Project
	if _, err := r.remote.call(ctx, r.creds, fmt.Sprintf("update project %d", id), http.MethodPut, fmt.Sprintf("/projects/%d", id), projectPayload(project), &updated); err != nil {
		return models.Project{}, err
	}
	return updated, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	_, err := r.remote.call(ctx, r.creds, fmt.Sprintf("delete project %d", id), http.MethodDelete, fmt.Sprintf("/projects/%d", id), nil, nil)
	return err
}

type wireProject struct {
	models.Project
	JobScope string `json:"job_scope"`
}

func projectPayload(p models.Project) wireProject {
	return wireProject{Project: p, JobScope: strings.Join(p.JobScope, ",")}
}
