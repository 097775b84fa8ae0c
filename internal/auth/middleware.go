package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sitestack-erp/sitestack-erp/internal/platform/httpx"
	"github.com/sitestack-erp/sitestack-erp/internal/shared"
)

// Middleware resolves the bearer credential on every request and installs
// the principal in context. Requests without a valid token are rejected
// before reaching any engine.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require rejects unauthenticated requests.
func (m Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.RespondError(w, shared.ErrAuthentication)
			return
		}
		principal, err := m.Service.Principal(r.Context(), token)
		if err != nil {
			if m.Logger != nil && !errors.Is(err, shared.ErrAuthentication) {
				m.Logger.Error("resolve principal", slog.Any("error", err))
			}
			httpx.RespondError(w, shared.ErrAuthentication)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
