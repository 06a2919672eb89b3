package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/auth"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

type actorKey struct{}

// Authenticate requires a valid bearer token and stores its actor on the
// request context.
func Authenticate(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "missing bearer token")
			return
		}
		actor, err := auth.Verify(secret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// WithActor attaches actor to ctx.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(r *http.Request) (domain.Actor, bool) {
	actor, ok := r.Context().Value(actorKey{}).(domain.Actor)
	return actor, ok && actor.UserID != ""
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// requireActor writes a 401 and returns false when the request carries no
// authenticated actor.
func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthenticated")
	}
	return actor, ok
}

// requireAdmin also rejects non-admin callers with a 403.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := requireActor(w, r)
	if !ok {
		return false
	}
	if actor.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, domain.CodeUnauthorizedAction, domain.ErrUnauthorizedAction.Error())
		return false
	}
	return true
}
