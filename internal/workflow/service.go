package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sitestack-erp/sitestack-erp/internal/audit"
	"github.com/sitestack-erp/sitestack-erp/internal/notify"
	"github.com/sitestack-erp/sitestack-erp/internal/perm"
	"github.com/sitestack-erp/sitestack-erp/internal/shared"
)

// PermissionChecker answers authorization questions for the gate.
type PermissionChecker interface {
	IsAuthorized(role string, module perm.Module, action perm.Action) bool
}

// AuditPort records state-changing actions.
type AuditPort interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// NotifyPort emits decided-request events.
type NotifyPort interface {
	DecisionDecided(ctx context.Context, event notify.DecisionEvent) error
}

// DecisionMetrics counts gate decisions and post-commit sink failures. A
// nil implementation disables counting.
type DecisionMetrics interface {
	ObserveDecision(module, outcome string)
	ObserveDeliveryFailure(sink string)
}

// ServiceConfig tunes the gate.
type ServiceConfig struct {
	// LockWait bounds how long a decision waits for the per-document lock
	// before failing with ErrBusy.
	LockWait time.Duration
	// BulkParallelism caps concurrent transitions during bulk approval.
	BulkParallelism int
	// Watchers are user IDs notified of every decision in addition to the
	// requester.
	Watchers []int64
}

// Service is the approval workflow engine. Concurrent decisions on the
// same document are serialised per document; decisions on different
// documents proceed independently.
type Service struct {
	repo    Repository
	perms   PermissionChecker
	audit   AuditPort
	notify  NotifyPort
	metrics DecisionMetrics
	locks   *shared.KeyedLock
	logger  *slog.Logger
	cfg     ServiceConfig
	now     func() time.Time
}

// NewService constructs the workflow engine.
func NewService(repo Repository, perms PermissionChecker, auditor AuditPort, emitter NotifyPort, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.LockWait <= 0 {
		cfg.LockWait = 3 * time.Second
	}
	if cfg.BulkParallelism <= 0 {
		cfg.BulkParallelism = 4
	}
	return &Service{
		repo:   repo,
		perms:  perms,
		audit:  auditor,
		notify: emitter,
		locks:  shared.NewKeyedLock(),
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithMetrics attaches a decision counter.
func (s *Service) WithMetrics(metrics DecisionMetrics) *Service {
	s.metrics = metrics
	return s
}

// Create registers a new document with the gate in Draft. The owning
// module calls this when the underlying business document is saved.
func (s *Service) Create(ctx context.Context, principal *shared.Principal, docType DocType, number string) (Document, error) {
	if principal == nil {
		return Document{}, shared.ErrAuthentication
	}
	module, ok := docType.Module()
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownDocType, docType)
	}
	if !s.perms.IsAuthorized(principal.Role, module, perm.ActionCreate) {
		return Document{}, shared.ErrAuthorization
	}
	if strings.TrimSpace(number) == "" {
		number = generateNumber(docType)
	}
	doc, err := s.repo.Create(ctx, Document{
		Type:        docType,
		Number:      number,
		Status:      StatusDraft,
		RequestedBy: principal.ID,
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Get fetches one document. The caller must hold view permission on the
// document's owning module.
func (s *Service) Get(ctx context.Context, id uuid.UUID, principal *shared.Principal) (Document, error) {
	if principal == nil {
		return Document{}, shared.ErrAuthentication
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	module, ok := doc.Type.Module()
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownDocType, doc.Type)
	}
	if !s.perms.IsAuthorized(principal.Role, module, perm.ActionView) {
		return Document{}, shared.ErrAuthorization
	}
	return doc, nil
}

// ListPending returns documents waiting at the gate that the caller may
// view. An explicit type filter requires view permission on that type's
// module; without a filter, documents in modules the caller cannot view
// are omitted.
func (s *Service) ListPending(ctx context.Context, docType DocType, principal *shared.Principal) ([]Document, error) {
	if principal == nil {
		return nil, shared.ErrAuthentication
	}
	if docType != "" {
		module, ok := docType.Module()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDocType, docType)
		}
		if !s.perms.IsAuthorized(principal.Role, module, perm.ActionView) {
			return nil, shared.ErrAuthorization
		}
		return s.repo.ListPending(ctx, docType)
	}
	docs, err := s.repo.ListPending(ctx, "")
	if err != nil {
		return nil, err
	}
	visible := make([]Document, 0, len(docs))
	for _, doc := range docs {
		module, ok := doc.Type.Module()
		if !ok || !s.perms.IsAuthorized(principal.Role, module, perm.ActionView) {
			continue
		}
		visible = append(visible, doc)
	}
	return visible, nil
}

// Submit moves a document from Draft to Pending. The caller must be the
// document's owner or hold create/edit permission on its module.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, principal *shared.Principal) (Document, error) {
	if principal == nil {
		return Document{}, shared.ErrAuthentication
	}
	release, err := s.locks.Acquire(ctx, id.String(), s.cfg.LockWait)
	if err != nil {
		return Document{}, err
	}
	defer release()

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	module, ok := doc.Type.Module()
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownDocType, doc.Type)
	}
	if doc.RequestedBy != principal.ID &&
		!s.perms.IsAuthorized(principal.Role, module, perm.ActionCreate) &&
		!s.perms.IsAuthorized(principal.Role, module, perm.ActionEdit) {
		return Document{}, shared.ErrAuthorization
	}
	if doc.Status != StatusDraft {
		return Document{}, fmt.Errorf("%w: cannot submit from %s", shared.ErrInvalidState, doc.Status)
	}

	now := s.now().UTC()
	applied, err := s.repo.MarkPending(ctx, id, now)
	if err != nil {
		return Document{}, err
	}
	if !applied {
		return Document{}, fmt.Errorf("%w: cannot submit from %s", shared.ErrInvalidState, doc.Status)
	}
	doc.Status = StatusPending
	doc.UpdatedAt = now

	s.recordAudit(ctx, audit.Entry{
		ActorID:    principal.ID,
		Action:     audit.ActionSubmit,
		Module:     string(module),
		EntityType: string(doc.Type),
		EntityID:   doc.ID,
		Outcome:    string(StatusPending),
		At:         now,
	})
	return doc, nil
}

// Decide applies an approve/reject outcome to a pending document. The
// transition is applied at most once: a second decision fails with
// ErrConflict (or ErrInvalidState when the first is already visible)
// rather than overwriting the prior outcome. The audit append is
// synchronous; notification is queued after the commit and its failure is
// logged, never propagated.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, principal *shared.Principal, outcome Outcome) (Document, error) {
	if principal == nil {
		return Document{}, shared.ErrAuthentication
	}
	release, err := s.locks.Acquire(ctx, id.String(), s.cfg.LockWait)
	if err != nil {
		return Document{}, err
	}
	defer release()

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	module, ok := doc.Type.Module()
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownDocType, doc.Type)
	}
	if !s.perms.IsAuthorized(principal.Role, module, perm.ActionApprove) {
		return Document{}, shared.ErrAuthorization
	}
	if doc.Status != StatusPending {
		return Document{}, fmt.Errorf("%w: cannot decide from %s", shared.ErrInvalidState, doc.Status)
	}

	now := s.now().UTC()
	status := outcome.Status()
	applied, err := s.repo.MarkDecided(ctx, id, status, principal.ID, now, outcome.Remarks())
	if err != nil {
		return Document{}, err
	}
	if !applied {
		// Precondition held on read but not at the write: another decision
		// committed in between.
		return Document{}, shared.ErrConflict
	}

	actor := principal.ID
	doc.Status = status
	doc.Remarks = outcome.Remarks()
	doc.DecidedBy = &actor
	doc.DecidedAt = &now
	doc.UpdatedAt = now

	s.recordAudit(ctx, audit.Entry{
		ActorID:    principal.ID,
		Action:     outcome.AuditAction(),
		Module:     string(module),
		EntityType: string(doc.Type),
		EntityID:   doc.ID,
		Outcome:    string(status),
		At:         now,
	})
	if s.metrics != nil {
		s.metrics.ObserveDecision(string(module), string(status))
	}
	s.emitDecision(ctx, doc, module)
	return doc, nil
}

// BulkItem is the per-document outcome of a bulk approval.
type BulkItem struct {
	ID     uuid.UUID `json:"id"`
	Status Status    `json:"status,omitempty"`
	Err    error     `json:"-"`
}

// BulkResult summarises a bulk approval.
type BulkResult struct {
	Items     []BulkItem
	Succeeded int
	Failed    int
}

// Summary renders a partial-success line such as "8 of 10 approved".
func (r BulkResult) Summary() string {
	return fmt.Sprintf("%d of %d approved", r.Succeeded, len(r.Items))
}

// ApproveBulk approves a batch of documents. Elements are processed
// independently and in parallel; one element's failure never aborts the
// others. Bulk operations are approve-only.
func (s *Service) ApproveBulk(ctx context.Context, ids []uuid.UUID, principal *shared.Principal) (BulkResult, error) {
	if principal == nil {
		return BulkResult{}, shared.ErrAuthentication
	}
	items := make([]BulkItem, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BulkParallelism)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			doc, err := s.Decide(gctx, id, principal, Approve(""))
			if err != nil {
				items[i] = BulkItem{ID: id, Err: err}
				return nil
			}
			items[i] = BulkItem{ID: id, Status: doc.Status}
			return nil
		})
	}
	_ = g.Wait()

	result := BulkResult{Items: items}
	for _, item := range items {
		if item.Err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		// The transition already committed; an audit sink failure is a
		// delivery problem, not a failure of the decision.
		s.logger.Error("audit append", slog.Any("error", fmt.Errorf("%w: %v", shared.ErrDelivery, err)),
			slog.String("entity_id", entry.EntityID.String()))
		if s.metrics != nil {
			s.metrics.ObserveDeliveryFailure("audit")
		}
	}
}

func (s *Service) emitDecision(ctx context.Context, doc Document, module perm.Module) {
	if s.notify == nil || doc.DecidedBy == nil || doc.DecidedAt == nil {
		return
	}
	event := notify.DecisionEvent{
		DocumentID:  doc.ID,
		DocType:     string(doc.Type),
		Number:      doc.Number,
		Module:      string(module),
		Outcome:     string(doc.Status),
		Remarks:     doc.Remarks,
		RequestedBy: doc.RequestedBy,
		DecidedBy:   *doc.DecidedBy,
		Watchers:    s.cfg.Watchers,
		DecidedAt:   *doc.DecidedAt,
	}
	if err := s.notify.DecisionDecided(ctx, event); err != nil {
		s.logger.Error("decision notify enqueue", slog.Any("error", fmt.Errorf("%w: %v", shared.ErrDelivery, err)),
			slog.String("entity_id", doc.ID.String()))
		if s.metrics != nil {
			s.metrics.ObserveDeliveryFailure("notify")
		}
	}
}

func generateNumber(docType DocType) string {
	prefix := map[DocType]string{
		DocMaterialRequisition: "MR",
		DocPurchaseOrder:       "PO",
		DocQuotation:           "QT",
		DocBOQ:                 "BOQ",
		DocEstimate:            "EST",
		DocContractorBill:      "CB",
		DocBudget:              "BGT",
	}[docType]
	if prefix == "" {
		prefix = "DOC"
	}
	return fmt.Sprintf("%s-%s", prefix, time.Now().UTC().Format("20060102-150405.000"))
}
