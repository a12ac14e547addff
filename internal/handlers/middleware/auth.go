package middleware

import (
	"net/http"

	"github.com/nkiryanov/greenpoints/internal/handlers/render"
	"github.com/nkiryanov/greenpoints/internal/handlers/userctx"
	"github.com/nkiryanov/greenpoints/internal/models"
)

type authService interface {
	Auth(r *http.Request) (models.Principal, error)
}

func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := as.Auth(r)
			if err != nil {
				render.Kind(w, render.UnauthorizedType, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := userctx.New(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly has to run after AuthMiddleware
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := userctx.FromContext(r.Context())
		if !ok {
			render.Kind(w, render.UnauthorizedType, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !p.IsAdmin() {
			render.Kind(w, render.ForbiddenType, "Admin role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
