package workflow

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sitestack-erp/sitestack-erp/internal/platform/httpx"
	"github.com/sitestack-erp/sitestack-erp/internal/shared"
)

// Handler exposes the approval gate over HTTP. Authorization is enforced
// in the service, not here: the handler only shapes requests and
// responses.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers workflow routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pending", h.listPending)
	r.Post("/documents", h.create)
	r.Get("/documents/{id}", h.get)
	r.Post("/documents/{id}/submit", h.submit)
	r.Post("/documents/{id}/decide", h.decide)
	r.Post("/decide-bulk", h.decideBulk)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	docType := DocType(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type"))))
	principal := shared.PrincipalFromContext(r.Context())
	docs, err := h.service.ListPending(r.Context(), docType, principal)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": docs})
}

type createRequest struct {
	Type   string `json:"type" validate:"required"`
	Number string `json:"number"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "type is required")
		return
	}
	principal := shared.PrincipalFromContext(r.Context())
	doc, err := h.service.Create(r.Context(), principal, DocType(strings.ToUpper(req.Type)), req.Number)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document id")
		return
	}
	principal := shared.PrincipalFromContext(r.Context())
	doc, err := h.service.Get(r.Context(), id, principal)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document id")
		return
	}
	principal := shared.PrincipalFromContext(r.Context())
	doc, err := h.service.Submit(r.Context(), id, principal)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type decideRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=approve reject"`
	Remarks string `json:"remarks"`
}

type decideResponse struct {
	Status    Status    `json:"status"`
	DecidedBy int64     `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document id")
		return
	}
	var req decideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "outcome must be approve or reject")
		return
	}

	var outcome Outcome
	if req.Outcome == "approve" {
		outcome = Approve(req.Remarks)
	} else {
		outcome, err = Reject(req.Remarks)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "remarks are required when rejecting")
			return
		}
	}

	principal := shared.PrincipalFromContext(r.Context())
	doc, err := h.service.Decide(r.Context(), id, principal, outcome)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, decideResponse{Status: doc.Status, DecidedBy: *doc.DecidedBy, DecidedAt: *doc.DecidedAt})
}

type decideBulkRequest struct {
	IDs     []uuid.UUID `json:"ids" validate:"required,min=1,max=100"`
	Outcome string      `json:"outcome" validate:"required,oneof=approve"`
}

type bulkItemResponse struct {
	ID     uuid.UUID `json:"id"`
	Status Status    `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`
}

func (h *Handler) decideBulk(w http.ResponseWriter, r *http.Request) {
	var req decideBulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "ids are required and bulk outcome must be approve")
		return
	}

	principal := shared.PrincipalFromContext(r.Context())
	result, err := h.service.ApproveBulk(r.Context(), req.IDs, principal)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	items := make([]bulkItemResponse, 0, len(result.Items))
	for _, item := range result.Items {
		resp := bulkItemResponse{ID: item.ID, Status: item.Status}
		if item.Err != nil {
			resp.Error = errCategory(item.Err)
		}
		items = append(items, resp)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"results": items,
		"summary": result.Summary(),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if !isClientError(err) {
		h.logger.Error("workflow request", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	if errors.Is(err, ErrUnknownDocType) || errors.Is(err, ErrRemarksRequired) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.RespondError(w, err)
}

func isClientError(err error) bool {
	for _, sentinel := range []error{
		shared.ErrAuthentication, shared.ErrAuthorization, shared.ErrValidation,
		shared.ErrInvalidState, shared.ErrConflict, shared.ErrBusy, shared.ErrNotFound,
		ErrUnknownDocType, ErrRemarksRequired,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func errCategory(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, shared.ErrConflict):
		return "conflict"
	case errors.Is(err, shared.ErrAuthorization):
		return "forbidden"
	case errors.Is(err, shared.ErrBusy):
		return "busy"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
