package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"quizhub-service/internal/domain"
)

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// IdentityMiddleware reads the caller from X-User-ID, X-User-Name and the
// Authorization bearer token. A request without any of them runs anonymously.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		who := domain.Identity{
			UserID:      strings.TrimSpace(r.Header.Get("X-User-ID")),
			DisplayName: strings.TrimSpace(r.Header.Get("X-User-Name")),
		}

		if header := r.Header.Get("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, errorBody{Error: "Authorization header exists, but it's invalid"})
				return
			}
			who.AccessToken = strings.TrimSpace(parts[1])
		}

		// Browsers cannot set headers on a websocket handshake.
		if who.UserID == "" {
			who.UserID = r.URL.Query().Get("userId")
		}
		if who.DisplayName == "" {
			who.DisplayName = r.URL.Query().Get("name")
		}
		if who.DisplayName == "" {
			who.DisplayName = who.UserID
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityCtxKey, who)))
	})
}

// IdentityFrom returns the caller attached by IdentityMiddleware.
func IdentityFrom(ctx context.Context) domain.Identity {
	who, _ := ctx.Value(identityCtxKey).(domain.Identity)
	return who
}
