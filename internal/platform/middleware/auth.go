package middleware

import (
	"log"
	"net/http"
	"strings"

	"georef/internal/platform/token"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// RequireScope guards a subtree behind bearer authentication with the given
// scope. Failures are logged with the request ID and answered with a
// minimal JSON body.
func RequireScope(validator TokenValidator, scope string, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				deny(w, r, logger, "missing bearer token")
				return
			}
			claims, err := validator.Validate(raw)
			if err != nil {
				deny(w, r, logger, err.Error())
				return
			}
			if claims.Scope != scope {
				deny(w, r, logger, "insufficient scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, logger *log.Logger, reason string) {
	if logger != nil {
		logger.Printf("unauthorized %s %s (request %s): %s", r.Method, r.URL.Path, GetRequestID(r.Context()), reason)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}`))
}
