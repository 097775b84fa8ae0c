package perm

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sitestack-erp/sitestack-erp/internal/platform/httpx"
	"github.com/sitestack-erp/sitestack-erp/internal/shared"
)

// Handler serves permission lookups for the front end.
type Handler struct {
	logger *slog.Logger
	engine *Engine
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{logger: logger, engine: engine}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listOwnPermissions)
	r.Get("/check", h.check)
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

// check answers "can role R perform action A in module M". The role defaults
// to the caller's own; supplying another role requires admin view access.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrAuthentication)
		return
	}

	module := Module(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("module"))))
	action := Action(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("action"))))
	if !module.Valid() || !action.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown module or action")
		return
	}

	role := strings.TrimSpace(r.URL.Query().Get("role"))
	if role == "" {
		role = principal.Role
	}
	if role != principal.Role && !h.engine.IsAuthorized(principal.Role, ModuleAdmin, ActionView) {
		httpx.RespondError(w, shared.ErrAuthorization)
		return
	}

	httpx.JSON(w, http.StatusOK, checkResponse{Allowed: h.engine.IsAuthorized(role, module, action)})
}

type permissionItem struct {
	Module Module `json:"module"`
	Action Action `json:"action"`
	Key    string `json:"key"`
}

func (h *Handler) listOwnPermissions(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrAuthentication)
		return
	}
	keys := h.engine.RolePermissions(principal.Role)
	items := make([]permissionItem, 0, len(keys))
	for _, key := range keys {
		items = append(items, permissionItem{Module: key.Module, Action: key.Action, Key: key.String()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": principal.Role, "permissions": items})
}
