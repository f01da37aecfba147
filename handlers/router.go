package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"siramm-project/web-service/middleware"
	"siramm-project/web-service/services"
)

// NewRouter wires every route. The returned handler already carries CORS.
func NewRouter(registry *services.SessionRegistry, cookieName, corsOrigin string) http.Handler {
	sessionHandler := NewSessionHandler(registry, cookieName)
	projectHandler := NewProjectHandler()
	userHandler := NewUserHandler()
	taskHandler := NewTaskHandler()

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", sessionHandler.Open).Methods(http.MethodPost)
	api.HandleFunc("/session", sessionHandler.Close).Methods(http.MethodDelete)

	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.RequireSession(registry, cookieName))

	authed.HandleFunc("/users", userHandler.List).Methods(http.MethodGet)
	authed.HandleFunc("/users/{userId:[0-9]+}", userHandler.Get).Methods(http.MethodGet)

	authed.HandleFunc("/projects", projectHandler.List).Methods(http.MethodGet)
	authed.HandleFunc("/projects", projectHandler.Create).Methods(http.MethodPost)
	authed.HandleFunc("/projects/{projectId:[0-9]+}", projectHandler.Get).Methods(http.MethodGet)
	authed.HandleFunc("/projects/{projectId:[0-9]+}", projectHandler.Update).Methods(http.MethodPut)
	authed.HandleFunc("/projects/{projectId:[0-9]+}", projectHandler.Delete).Methods(http.MethodDelete)
	authed.HandleFunc("/projects/{projectId:[0-9]+}/scopes", projectHandler.Scopes).Methods(http.MethodGet)

	for _, prefix := range []string{"/tasks", "/projects/{projectId:[0-9]+}/tasks"} {
		authed.HandleFunc(prefix, taskHandler.List).Methods(http.MethodGet)
		authed.HandleFunc(prefix+"/draft", taskHandler.StartDraft).Methods(http.MethodPost)
		authed.HandleFunc(prefix+"/draft", taskHandler.GetDraft).Methods(http.MethodGet)
		authed.HandleFunc(prefix+"/draft", taskHandler.EditDraft).Methods(http.MethodPatch)
		authed.HandleFunc(prefix+"/draft", taskHandler.CancelDraft).Methods(http.MethodDelete)
		authed.HandleFunc(prefix+"/draft/attachments", taskHandler.AddDraftAttachment).Methods(http.MethodPost)
		authed.HandleFunc(prefix+"/draft/attachments/{index:[0-9]+}", taskHandler.RemoveDraftAttachment).Methods(http.MethodDelete)
		authed.HandleFunc(prefix+"/draft/submit", taskHandler.SubmitDraft).Methods(http.MethodPost)
		authed.HandleFunc(prefix+"/{taskId:[0-9]+}", taskHandler.SetField).Methods(http.MethodPatch)
		authed.HandleFunc(prefix+"/{taskId:[0-9]+}", taskHandler.Delete).Methods(http.MethodDelete)
		authed.HandleFunc(prefix+"/{taskId:[0-9]+}/commit", taskHandler.Commit).Methods(http.MethodPost)
		authed.HandleFunc(prefix+"/{taskId:[0-9]+}/status", taskHandler.ChangeStatus).Methods(http.MethodPatch)
	}

	authed.HandleFunc("/mutations", taskHandler.Mutations).Methods(http.MethodGet)

	return middleware.EnableCORS(corsOrigin, r)
}
