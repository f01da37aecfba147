package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"siramm-project/web-service/logging"
	"siramm-project/web-service/services"
)

type sessionKey struct{}

// LoginPath is where clients without a usable session are sent.
const LoginPath = "/login"

// RequireSession resolves the session cookie and stores the session in the
// request context. Requests without a live session get 401 and a redirect hint.
func RequireSession(registry *services.SessionRegistry, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				Unauthorized(w, "missing session")
				return
			}
			session, err := registry.Get(cookie.Value)
			if err != nil {
				logging.Logger.Warnf("Event ID: SESSION_UNKNOWN, Description: %s %s with unknown session", r.Method, r.URL.Path)
				Unauthorized(w, "session expired")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func WithSession(ctx context.Context, s *services.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFrom(ctx context.Context) (*services.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*services.Session)
	return s, ok && s != nil
}

// Unauthorized writes the 401 body clients use to go to the login page.
func Unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "redirect": LoginPath})
}
