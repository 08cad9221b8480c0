package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/radiology-ai/internal/application"
)

type contextKey string

const principalKey contextKey = "principal"

// Credential binds one bearer key to the caller it authenticates.
type Credential struct {
	Key       string
	Principal application.Principal
}

// APIKeyAuth validates the bearer key from the Authorization header and puts
// the matching Principal in the request context.
func APIKeyAuth(creds []Credential) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			// constant-time, dan jangan berhenti di match pertama
			var found *application.Principal
			for i := range creds {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(creds[i].Key)) == 1 && found == nil {
					found = &creds[i].Principal
				}
			}
			if found == nil {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *found)))
		})
	}
}

func WithPrincipal(ctx context.Context, p application.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the caller set by APIKeyAuth.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	p, ok := ctx.Value(principalKey).(application.Principal)
	return p, ok
}

// RequirePatientAccess checks the chi URL param against the caller: patients
// only reach their own records, doctors and admins reach every patient.
func RequirePatientAccess(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			patientID := chi.URLParam(r, param)
			if err := ValidatePatientID(patientID); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}
			if !p.CanAccessPatient(patientID) {
				http.Error(w, "access denied", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole lets only the listed roles through.
func RequireRole(roles ...application.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "access denied", http.StatusForbidden)
		})
	}
}
