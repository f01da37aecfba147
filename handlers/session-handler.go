package handlers

import (
	"net/http"

	"siramm-project/web-service/credentials"
	"siramm-project/web-service/logging"
	"siramm-project/web-service/services"
)

type SessionHandler struct {
	registry   *services.SessionRegistry
	cookieName string
}

func NewSessionHandler(registry *services.SessionRegistry, cookieName string) *SessionHandler {
	return &SessionHandler{registry: registry, cookieName: cookieName}
}

type openSessionRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Open exchanges a bearer token for a session cookie.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.registry.Open(req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	resp := sessionResponse{}
	if claims, ok := credentials.Inspect(req.Token); ok {
		resp.Username, resp.Email, resp.Role = claims.Username, claims.Email, claims.Role
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Close signs out. It succeeds even without a live session.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		if err := h.registry.Close(r.Context(), cookie.Value); err != nil {
			logging.Logger.Debugf("Event ID: SESSION_CLOSE_SKIPPED, Description: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
