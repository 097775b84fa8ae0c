package perm

import (
	"log/slog"
	"net/http"

	"github.com/sitestack-erp/sitestack-erp/internal/platform/httpx"
	"github.com/sitestack-erp/sitestack-erp/internal/shared"
)

// Middleware wires permission checks into HTTP routes.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// Require rejects requests whose principal lacks the (module, action)
// permission. Missing principal is an authentication failure, an
// insufficient role an authorization failure; the distinction is surfaced
// to the client.
func (m Middleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.RespondError(w, shared.ErrAuthentication)
				return
			}
			if !m.Engine.IsAuthorized(principal.Role, module, action) {
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.String("role", principal.Role),
						slog.String("module", string(module)),
						slog.String("action", string(action)))
				}
				httpx.RespondError(w, shared.ErrAuthorization)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
