package handlers

import (
	"net/http"

	"siramm-project/web-service/middleware"
	"siramm-project/web-service/models"
	"siramm-project/web-service/services"
)

// ProjectHandler proxies project CRUD and exposes each project's scope options.
type ProjectHandler struct{}

func NewProjectHandler() *ProjectHandler {
	return &ProjectHandler{}
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		writeError(w, r, models.ErrAuthenticationRequired)
		return
	}
	projects, err := session.Projects.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, id, err := h.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	project, err := session.Projects.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		writeError(w, r, models.ErrAuthenticationRequired)
		return
	}
	var project models.Project
	if err := decodeJSON(r, &project); err != nil {
		writeError(w, r, err)
		return
	}
	if project.Name == "" {
		writeError(w, r, &models.ValidationError{Field: "name", Message: "name is required"})
		return
	}
	created, err := session.Projects.Create(r.Context(), project)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update replaces a project. The cached view is dropped so the next task
// request picks up a changed job scope.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, id, err := h.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var project models.Project
	if err := decodeJSON(r, &project); err != nil {
		writeError(w, r, err)
		return
	}
	project.ID = id
	updated, err := session.Projects.Update(r.Context(), id, project)
	if err != nil {
		writeError(w, r, err)
		return
	}
	session.Forget(services.ProjectView(id))
	writeJSON(w, http.StatusOK, updated)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, id, err := h.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := session.Projects.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	session.Forget(services.ProjectView(id))
	w.WriteHeader(http.StatusNoContent)
}

// Scopes lists the scope options of a project in order; the first is the
// default for new tasks.
func (h *ProjectHandler) Scopes(w http.ResponseWriter, r *http.Request) {
	session, id, err := h.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	project, err := session.Projects.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services.ResolveScopes(project.JobScope))
}

func (h *ProjectHandler) target(r *http.Request) (*services.Session, int, error) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		return nil, 0, models.ErrAuthenticationRequired
	}
	id, err := intVar(r, "projectId")
	if err != nil {
		return nil, 0, err
	}
	return session, id, nil
}
