package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dwianugrah/keepsake/internal/server/auth"
)

type contextKey string

const principalKey contextKey = "principal"

// requireAuth resolves the principal from the Authorization header and puts
// it on the request context. Handlers read it back with principalID; the
// services only ever see the resolved ID.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token", Code: "unauthorized"})
			return
		}

		principal, err := auth.PrincipalFromToken(token, []byte(s.secretKey))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next(w, r.WithContext(ctx))
	}
}

func principalID(r *http.Request) string {
	p, _ := r.Context().Value(principalKey).(string)
	return p
}
