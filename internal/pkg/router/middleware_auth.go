package router

import (
	"net/http"
	"strings"

	"github.com/0xmonas/cobbee/internal/pkg/jwt"
)

// middlewareAuthentication enforces bearer tokens on protected routes. On
// public routes a valid token still binds the subject to the context so the
// verification flow can attribute the request; an invalid one is ignored and
// the request proceeds anonymously.
func middlewareAuthentication(verifier jwt.JWT, publicEndpoints map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)

			public := false
			if s, ok := publicEndpoints[r.Method]; ok {
				_, public = s[route]
			}

			parts := strings.Fields(r.Header.Get("Authorization"))
			hasBearer := len(parts) == 2 && strings.EqualFold(parts[0], "Bearer")

			if !hasBearer {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}
