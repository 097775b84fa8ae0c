package workflow

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sitestack-erp/sitestack-erp/internal/audit"
	"github.com/sitestack-erp/sitestack-erp/internal/notify"
	"github.com/sitestack-erp/sitestack-erp/internal/perm"
	"github.com/sitestack-erp/sitestack-erp/internal/shared"
)

type memoryDocRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]Document

	// blockGet, when set, parks Get until the channel closes. Used to hold
	// the per-document lock from one goroutine while another times out.
	blockGet chan struct{}
	// failDecide forces MarkDecided to report the precondition lost.
	failDecide bool
}

func newMemoryDocRepo() *memoryDocRepo {
	return &memoryDocRepo{docs: make(map[uuid.UUID]Document)}
}

func (r *memoryDocRepo) Create(ctx context.Context, doc Document) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	r.docs[doc.ID] = doc
	return doc, nil
}

func (r *memoryDocRepo) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	if r.blockGet != nil {
		<-r.blockGet
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, shared.ErrNotFound
	}
	return doc, nil
}

func (r *memoryDocRepo) ListPending(ctx context.Context, docType DocType) ([]Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var docs []Document
	for _, doc := range r.docs {
		if doc.Status != StatusPending {
			continue
		}
		if docType != "" && doc.Type != docType {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *memoryDocRepo) MarkPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.Status != StatusDraft {
		return false, nil
	}
	doc.Status = StatusPending
	doc.UpdatedAt = at
	r.docs[id] = doc
	return true, nil
}

func (r *memoryDocRepo) MarkDecided(ctx context.Context, id uuid.UUID, status Status, decidedBy int64, decidedAt time.Time, remarks string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDecide {
		return false, nil
	}
	doc, ok := r.docs[id]
	if !ok || doc.Status != StatusPending {
		return false, nil
	}
	doc.Status = status
	doc.DecidedBy = &decidedBy
	doc.DecidedAt = &decidedAt
	doc.Remarks = remarks
	doc.UpdatedAt = decidedAt
	r.docs[id] = doc
	return true, nil
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (a *memoryAudit) Record(ctx context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memoryAudit) byAction(action string) []audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []audit.Entry
	for _, e := range a.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type memoryNotify struct {
	mu     sync.Mutex
	events []notify.DecisionEvent
	err    error
}

func (n *memoryNotify) DecisionDecided(ctx context.Context, event notify.DecisionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

type stubMetrics struct {
	mu        sync.Mutex
	decisions map[string]int
	failures  map[string]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{decisions: make(map[string]int), failures: make(map[string]int)}
}

func (m *stubMetrics) ObserveDecision(module, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[module+"/"+outcome]++
}

func (m *stubMetrics) ObserveDeliveryFailure(sink string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[sink]++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGateService(t *testing.T, repo Repository, auditor AuditPort, notifier NotifyPort, cfg ServiceConfig) *Service {
	t.Helper()
	engine, err := perm.NewDefaultEngine()
	require.NoError(t, err)
	return NewService(repo, engine, auditor, notifier, testLogger(), cfg)
}

func officer() *shared.Principal {
	return &shared.Principal{ID: 7, DisplayName: "Pat", Role: perm.RolePurchaseOfficer}
}

func approver() *shared.Principal {
	return &shared.Principal{ID: 42, DisplayName: "Alex", Role: perm.RoleApprover}
}

func viewer() *shared.Principal {
	return &shared.Principal{ID: 9, DisplayName: "Vin", Role: perm.RoleViewer}
}

func admin() *shared.Principal {
	return &shared.Principal{ID: 1, DisplayName: "Ada", Role: perm.RoleAdmin}
}

func siteEngineer() *shared.Principal {
	return &shared.Principal{ID: 11, DisplayName: "Sam", Role: perm.RoleSiteEngineer}
}

func pendingDoc(t *testing.T, svc *Service, creator *shared.Principal, docType DocType) Document {
	t.Helper()
	ctx := context.Background()
	doc, err := svc.Create(ctx, creator, docType, "")
	require.NoError(t, err)
	doc, err = svc.Submit(ctx, doc.ID, creator)
	require.NoError(t, err)
	require.Equal(t, StatusPending, doc.Status)
	return doc
}

func TestGateLifecycle(t *testing.T) {
	repo := newMemoryDocRepo()
	auditor := &memoryAudit{}
	notifier := &memoryNotify{}
	svc := newGateService(t, repo, auditor, notifier, ServiceConfig{Watchers: []int64{100}})
	ctx := context.Background()

	doc, err := svc.Create(ctx, officer(), DocPurchaseOrder, "")
	require.NoError(t, err)
	require.Equal(t, StatusDraft, doc.Status)
	require.NotEmpty(t, doc.Number)

	doc, err = svc.Submit(ctx, doc.ID, officer())
	require.NoError(t, err)
	require.Equal(t, StatusPending, doc.Status)

	pending, err := svc.ListPending(ctx, DocPurchaseOrder, approver())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	decided, err := svc.Decide(ctx, doc.ID, approver(), Approve("within budget"))
	require.NoError(t, err)
	require.Equal(t, StatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	require.Equal(t, int64(42), *decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)

	require.Len(t, auditor.byAction(audit.ActionSubmit), 1)
	approvals := auditor.byAction(audit.ActionApprove)
	require.Len(t, approvals, 1)
	require.Equal(t, string(perm.ModulePurchase), approvals[0].Module)
	require.Equal(t, string(StatusApproved), approvals[0].Outcome)

	require.Len(t, notifier.events, 1)
	require.Equal(t, int64(7), notifier.events[0].RequestedBy)
	require.Equal(t, []int64{100}, notifier.events[0].Watchers)
}

func TestGateRejectRecordsRemarks(t *testing.T) {
	repo := newMemoryDocRepo()
	auditor := &memoryAudit{}
	svc := newGateService(t, repo, auditor, &memoryNotify{}, ServiceConfig{})
	ctx := context.Background()

	doc := pendingDoc(t, svc, officer(), DocPurchaseOrder)

	outcome, err := Reject("Price too high")
	require.NoError(t, err)
	decided, err := svc.Decide(ctx, doc.ID, approver(), outcome)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, decided.Status)
	require.Equal(t, "Price too high", decided.Remarks)

	rejections := auditor.byAction(audit.ActionReject)
	require.Len(t, rejections, 1)
	require.Equal(t, string(perm.ModulePurchase), rejections[0].Module)
	require.Equal(t, string(StatusRejected), rejections[0].Outcome)
}

func TestGateDecideInvalidStates(t *testing.T) {
	repo := newMemoryDocRepo()
	svc := newGateService(t, repo, &memoryAudit{}, &memoryNotify{}, ServiceConfig{})
	ctx := context.Background()

	draft, err := svc.Create(ctx, officer(), DocPurchaseOrder, "")
	require.NoError(t, err)
	_, err = svc.Decide(ctx, draft.ID, approver(), Approve(""))
	require.ErrorIs(t, err, shared.ErrInvalidState)

	doc := pendingDoc(t, svc, officer(), DocPurchaseOrder)
	_, err = svc.Decide(ctx, doc.ID, approver(), Approve(""))
	require.NoError(t, err)

	// Second decision sees the terminal state.
	_, err = svc.Decide(ctx, doc.ID, approver(), Approve(""))
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.Decide(ctx, uuid.New(), approver(), Approve(""))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGateDecideUnauthorizedLeavesStateUntouched(t *testing.T) {
	repo := newMemoryDocRepo()
	auditor := &memoryAudit{}
	svc := newGateService(t, repo, auditor, &memoryNotify{}, ServiceConfig{})
	ctx := context.Background()

	doc := pendingDoc(t, svc, officer(), DocPurchaseOrder)

	_, err := svc.Decide(ctx, doc.ID, viewer(), Approve(""))
	require.ErrorIs(t, err, shared.ErrAuthorization)

	// The submitting officer holds create, not approve.
	_, err = svc.Decide(ctx, doc.ID, officer(), Approve(""))
	require.ErrorIs(t, err, shared.ErrAuthorization)

	got, err := svc.Get(ctx, doc.ID, approver())
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
	require.Empty(t, auditor.byAction(audit.ActionApprove))
}

func TestGateSubmitRules(t *testing.T) {
	repo := newMemoryDocRepo()
	svc := newGateService(t, repo, &memoryAudit{}, &memoryNotify{}, ServiceConfig{})
	ctx := context.Background()

	doc, err := svc.Create(ctx, officer(), DocPurchaseOrder, "PO-2026-0001")
	require.NoError(t, err)
	require.Equal(t, "PO-2026-0001", doc.Number)

	// A viewer neither owns the draft nor holds create/edit on PURCHASE.
	_, err = svc.Submit(ctx, doc.ID, viewer())
	require.ErrorIs(t, err, shared.ErrAuthorization)

	doc, err = svc.Submit(ctx, doc.ID, officer())
	require.NoError(t, err)

	_, err = svc.Submit(ctx, doc.ID, officer())
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestGateCreateRules(t *testing.T) {
	svc := newGateService(t, newMemoryDocRepo(), &memoryAudit{}, &memoryNotify{}, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, DocPurchaseOrder, "")
	require.ErrorIs(t, err, shared.ErrAuthentication)

	_, err = svc.Create(ctx, viewer(), DocPurchaseOrder, "")
	require.ErrorIs(t, err, shared.ErrAuthorization)

	_, err = svc.Create(ctx, officer(), DocType("TIMESHEET"), "")
	require.ErrorIs(t, err, ErrUnknownDocType)
}

func TestGateConcurrentDecidesSingleWinner(t *testing.T) {
	repo := newMemoryDocRepo()
	auditor := &memoryAudit{}
	svc := newGateService(t, repo, auditor, &memoryNotify{}, ServiceConfig{})
	doc := pendingDoc(t, svc, officer(), DocPurchaseOrder)

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Decide(context.Background(), doc.ID, approver(), Approve(""))
		}()
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.True(t, errors.Is(err, shared.ErrInvalidState) || errors.Is(err, shared.ErrConflict),
			"unexpected racer error: %v", err)
	}
	require.Equal(t, 1, wins)
	require.Len(t, auditor.byAction(audit.ActionApprove), 1)
}

func TestGateDecideConflictWhenWriteLosesRace(t *testing.T) {
	repo := newMemoryDocRepo()
	auditor := &memoryAudit{}
	notifier := &memoryNotify{}
	svc := newGateService(t, repo, auditor, notifier, ServiceConfig{})
	doc := pendingDoc(t, svc, officer(), DocPurchaseOrder)

	// The read sees PENDING but the conditional write reports the
	// precondition gone, as when another process decided in between.
	repo.failDecide = true
	_, err := svc.Decide(context.Background(), doc.ID, approver(), Approve(""))
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Empty(t, auditor.byAction(audit.ActionApprove))
	require.Empty(t, notifier.events)
}

func TestGateDecideBusyOnLockTimeout(t *testing.T) {
	repo := newMemoryDocRepo()
	svc := newGateService(t, repo, &memoryAudit{}, &memoryNotify{}, ServiceConfig{LockWait: 50 * time.Millisecond})
	doc := pendingDoc(t, svc, officer(), DocPurchaseOrder)

	block := make(chan struct{})
	repo.blockGet = block
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Decide(context.Background(), doc.ID, approver(), Approve(""))
	}()
	time.Sleep(10 * time.Millisecond)

	_, err := svc.Decide(context.Background(), doc.ID, approver(), Approve(""))
	require.ErrorIs(t, err, shared.ErrBusy)

	close(block)
	<-done
}

func TestGateSideEffectFailuresDoNotFailDecision(t *testing.T) {
	repo := newMemoryDocRepo()
	auditor := &memoryAudit{}
	notifier := &memoryNotify{}
	metrics := newStubMetrics()
	svc := newGateService(t, repo, auditor, notifier, ServiceConfig{}).WithMetrics(metrics)
	doc := pendingDoc(t, svc, officer(), DocPurchaseOrder)

	// Sinks fail only from here on, so the counts below are the
	// decision's alone.
	auditor.err = errors.New("sink down")
	notifier.err = errors.New("queue down")

	decided, err := svc.Decide(context.Background(), doc.ID, approver(), Approve(""))
	require.NoError(t, err)
	require.Equal(t, StatusApproved, decided.Status)

	require.Equal(t, 1, metrics.decisions["PURCHASE/APPROVED"])
	require.Equal(t, 1, metrics.failures["audit"])
	require.Equal(t, 1, metrics.failures["notify"])
}

func TestGateSinkFailuresLogDeliveryErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	engine, err := perm.NewDefaultEngine()
	require.NoError(t, err)
	repo := newMemoryDocRepo()
	auditor := &memoryAudit{}
	notifier := &memoryNotify{}
	svc := NewService(repo, engine, auditor, notifier, logger, ServiceConfig{})
	doc := pendingDoc(t, svc, officer(), DocPurchaseOrder)

	auditor.err = errors.New("sink down")
	notifier.err = errors.New("queue down")

	_, err = svc.Decide(context.Background(), doc.ID, approver(), Approve(""))
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, shared.ErrDelivery.Error())
	require.Contains(t, out, "sink down")
	require.Contains(t, out, "queue down")
}

func TestGateReadPathsRequireViewPermission(t *testing.T) {
	repo := newMemoryDocRepo()
	svc := newGateService(t, repo, &memoryAudit{}, &memoryNotify{}, ServiceConfig{})
	ctx := context.Background()

	bill := pendingDoc(t, svc, admin(), DocContractorBill)
	po := pendingDoc(t, svc, officer(), DocPurchaseOrder)

	// A site engineer holds no view grant on the accounts module.
	_, err := svc.Get(ctx, bill.ID, siteEngineer())
	require.ErrorIs(t, err, shared.ErrAuthorization)

	_, err = svc.ListPending(ctx, DocContractorBill, siteEngineer())
	require.ErrorIs(t, err, shared.ErrAuthorization)

	// The unfiltered listing omits modules the caller cannot view.
	pending, err := svc.ListPending(ctx, "", siteEngineer())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, po.ID, pending[0].ID)

	_, err = svc.Get(ctx, bill.ID, nil)
	require.ErrorIs(t, err, shared.ErrAuthentication)
	_, err = svc.ListPending(ctx, "", nil)
	require.ErrorIs(t, err, shared.ErrAuthentication)

	// An approver holds accounts view and sees both.
	got, err := svc.Get(ctx, bill.ID, approver())
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
	pending, err = svc.ListPending(ctx, "", approver())
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestGateApproveBulkPartialSuccess(t *testing.T) {
	repo := newMemoryDocRepo()
	auditor := &memoryAudit{}
	svc := newGateService(t, repo, auditor, &memoryNotify{}, ServiceConfig{BulkParallelism: 3})
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		doc := pendingDoc(t, svc, officer(), DocPurchaseOrder)
		ids = append(ids, doc.ID)
	}
	draft, err := svc.Create(ctx, officer(), DocPurchaseOrder, "")
	require.NoError(t, err)
	ids = append(ids, draft.ID, uuid.New())

	result, err := svc.ApproveBulk(ctx, ids, approver())
	require.NoError(t, err)
	require.Len(t, result.Items, 5)
	require.Equal(t, 3, result.Succeeded)
	require.Equal(t, 2, result.Failed)
	require.Equal(t, "3 of 5 approved", result.Summary())

	// Results line up with the input order.
	for i := 0; i < 3; i++ {
		require.Equal(t, ids[i], result.Items[i].ID)
		require.NoError(t, result.Items[i].Err)
		require.Equal(t, StatusApproved, result.Items[i].Status)
	}
	require.ErrorIs(t, result.Items[3].Err, shared.ErrInvalidState)
	require.ErrorIs(t, result.Items[4].Err, shared.ErrNotFound)

	require.Len(t, auditor.byAction(audit.ActionApprove), 3)
}

func TestGateApproveBulkUnauthorizedPerItem(t *testing.T) {
	repo := newMemoryDocRepo()
	svc := newGateService(t, repo, &memoryAudit{}, &memoryNotify{}, ServiceConfig{})
	ctx := context.Background()

	doc := pendingDoc(t, svc, officer(), DocPurchaseOrder)

	result, err := svc.ApproveBulk(ctx, []uuid.UUID{doc.ID}, viewer())
	require.NoError(t, err)
	require.Equal(t, 0, result.Succeeded)
	require.Equal(t, 1, result.Failed)
	require.ErrorIs(t, result.Items[0].Err, shared.ErrAuthorization)

	got, err := svc.Get(ctx, doc.ID, approver())
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
}
