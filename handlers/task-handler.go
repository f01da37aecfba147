package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"siramm-project/web-service/middleware"
	"siramm-project/web-service/models"
	"siramm-project/web-service/services"
)

// TaskHandler serves one task view per request: the project view when the
// route carries {projectId}, the global view otherwise.
type TaskHandler struct {
	now func() time.Time
}

func NewTaskHandler() *TaskHandler {
	return &TaskHandler{now: time.Now}
}

type listResponse struct {
	View      string             `json:"view"`
	Scopes    []string           `json:"scopes"`
	Rows      []services.RowView `json:"rows"`
	LoadError string             `json:"load_error,omitempty"`
}

type fieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
	// Index addresses one attachment slot of a draft.
	Index *int `json:"index,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *TaskHandler) collection(r *http.Request) (*services.TaskCollection, error) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		return nil, models.ErrAuthenticationRequired
	}
	if _, scoped := mux.Vars(r)["projectId"]; scoped {
		id, err := intVar(r, "projectId")
		if err != nil {
			return nil, err
		}
		return session.Project(r.Context(), id)
	}
	return session.Global(r.Context())
}

// List returns the view's rows, optionally filtered by ?status= and reloaded
// with ?refresh=true.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	status := q.Get("status")
	if status != "" && status != "all" && !models.TaskStatus(status).IsValid() {
		writeError(w, r, &models.ValidationError{Field: "status", Message: "unknown status filter " + strconv.Quote(status)})
		return
	}
	if refresh, _ := strconv.ParseBool(q.Get("refresh")); refresh {
		if err := c.Load(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
	}

	resp := listResponse{
		View:   c.View(),
		Scopes: c.Scopes(),
		Rows:   c.Rows(status, h.now()),
	}
	if err := c.LoadError(); err != nil {
		resp.LoadError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TaskHandler) SetField(w http.ResponseWriter, r *http.Request) {
	c, id, err := h.row(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fieldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	field, err := models.ParseTaskField(req.Field)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := c.SetField(id, field, req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeRow(w, r, c, id)
}

func (h *TaskHandler) Commit(w http.ResponseWriter, r *http.Request) {
	c, id, err := h.row(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := c.Commit(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeRow(w, r, c, id)
}

func (h *TaskHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	c, id, err := h.row(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := c.ChangeStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeRow(w, r, c, id)
}

// Delete answers 202 as soon as the row is gone locally; the remote removal
// finishes in the background.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, id, err := h.row(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := c.DeleteRow(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, m)
}

func (h *TaskHandler) StartDraft(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c.StartDraft())
}

func (h *TaskHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := c.Draft()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *TaskHandler) EditDraft(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fieldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	field, err := models.ParseTaskField(req.Field)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := c.EditDraft(func(d *services.TaskDraft) error {
		if req.Index != nil && field == models.FieldAttachments {
			return d.SetAttachment(*req.Index, req.Value)
		}
		return d.Set(field, req.Value)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *TaskHandler) CancelDraft(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.CancelDraft()
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) AddDraftAttachment(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := c.EditDraft(func(d *services.TaskDraft) error {
		d.AddAttachment()
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *TaskHandler) RemoveDraftAttachment(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	index, err := intVar(r, "index")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := c.EditDraft(func(d *services.TaskDraft) error {
		return d.RemoveAttachment(index)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *TaskHandler) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := c.SubmitDraft(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeRowStatus(w, r, c, created.ID, http.StatusCreated)
}

// Mutations lists the session's pending and failed writes.
func (h *TaskHandler) Mutations(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		writeError(w, r, models.ErrAuthenticationRequired)
		return
	}
	pending, err := session.Mutations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *TaskHandler) row(r *http.Request) (*services.TaskCollection, int, error) {
	c, err := h.collection(r)
	if err != nil {
		return nil, 0, err
	}
	id, err := intVar(r, "taskId")
	if err != nil {
		return nil, 0, err
	}
	return c, id, nil
}

func (h *TaskHandler) writeRow(w http.ResponseWriter, r *http.Request, c *services.TaskCollection, id int) {
	h.writeRowStatus(w, r, c, id, http.StatusOK)
}

func (h *TaskHandler) writeRowStatus(w http.ResponseWriter, r *http.Request, c *services.TaskCollection, id, status int) {
	row, err := c.Row(id, h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, row)
}
