package middleware

import (
	"net/http"

	"github.com/encamino/encamino-backend/api/responses"
	"github.com/encamino/encamino-backend/pkg/enums"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
	"github.com/encamino/encamino-backend/pkg/logger"
)

// RequireRole rejects requests whose actor does not hold one of the given roles.
func RequireRole(logg *logger.Logger, roles ...enums.ActorRole) func(http.Handler) http.Handler {
	allowed := make(map[enums.ActorRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok || !allowed[actor.Role] {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
