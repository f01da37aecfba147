package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"siramm-project/web-service/logging"
	"siramm-project/web-service/middleware"
	"siramm-project/web-service/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Warnf("Event ID: RESPONSE_ENCODE_FAILED, Description: %v", err)
	}
}

// writeError maps the error taxonomy onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	var terr *models.TransportError
	switch {
	case errors.Is(err, models.ErrAuthenticationRequired):
		middleware.Unauthorized(w, err.Error())
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &terr):
		logging.Logger.Errorf("Event ID: REMOTE_STORE_ERROR, Description: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		logging.Logger.Errorf("Event ID: INTERNAL_ERROR, Description: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &models.ValidationError{Message: fmt.Sprintf("invalid request body: %v", err)}
	}
	return nil
}

func intVar(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.ValidationError{Field: name, Message: fmt.Sprintf("invalid %s %q", name, raw)}
	}
	return n, nil
}
