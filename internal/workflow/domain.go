// Package workflow implements the approval gate shared by every
// approval-capable document type: a bounded lifecycle with a single
// approve/reject decision per submission, an audit trail, and
// notification side effects.
package workflow

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sitestack-erp/sitestack-erp/internal/perm"
)

// Status enumerates document lifecycle states. Not every document type
// uses every state; the approval gate itself only ever transitions
// Draft -> Pending -> Approved/Rejected.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusSent      Status = "SENT"
	StatusReceived  Status = "RECEIVED"
	StatusClosed    Status = "CLOSED"
	StatusActive    Status = "ACTIVE"
	StatusPlanning  Status = "PLANNING"
	StatusOnHold    Status = "ON_HOLD"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Decided reports whether the status is terminal for the approval gate.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

// DocType identifies an approval-capable document type.
type DocType string

const (
	DocMaterialRequisition DocType = "MATERIAL_REQUISITION"
	DocPurchaseOrder       DocType = "PURCHASE_ORDER"
	DocQuotation           DocType = "QUOTATION"
	DocBOQ                 DocType = "BOQ"
	DocEstimate            DocType = "ESTIMATE"
	DocContractorBill      DocType = "CONTRACTOR_BILL"
	DocBudget              DocType = "BUDGET"
)

// docTypeModules maps each document type to the module whose permissions
// govern it. Unknown types are rejected at the service boundary.
var docTypeModules = map[DocType]perm.Module{
	DocMaterialRequisition: perm.ModuleSite,
	DocPurchaseOrder:       perm.ModulePurchase,
	DocQuotation:           perm.ModulePurchase,
	DocBOQ:                 perm.ModuleContracts,
	DocEstimate:            perm.ModuleEngineering,
	DocContractorBill:      perm.ModuleAccounts,
	DocBudget:              perm.ModuleAccounts,
}

// Module returns the owning module for the document type.
func (t DocType) Module() (perm.Module, bool) {
	module, ok := docTypeModules[t]
	return module, ok
}

// DocTypes lists every registered document type.
func DocTypes() []DocType {
	return []DocType{
		DocMaterialRequisition,
		DocPurchaseOrder,
		DocQuotation,
		DocBOQ,
		DocEstimate,
		DocContractorBill,
		DocBudget,
	}
}

// Document is an approvable business document as seen by the gate. Once
// submitted it is mutated only through the workflow engine; a decided
// document is never deleted.
type Document struct {
	ID          uuid.UUID  `json:"id"`
	Type        DocType    `json:"type"`
	Number      string     `json:"number"`
	Status      Status     `json:"status"`
	Remarks     string     `json:"remarks,omitempty"`
	RequestedBy int64      `json:"requested_by"`
	DecidedBy   *int64     `json:"decided_by,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ErrUnknownDocType indicates a document type outside the registry.
var ErrUnknownDocType = errors.New("workflow: unknown document type")

// Outcome is the decision applied at the gate. The reject variant cannot
// be constructed without remarks, so the "remarks required on reject" rule
// holds by construction rather than by a runtime conditional.
type Outcome struct {
	approve bool
	remarks string
}

// Approve builds an approval outcome; remarks are optional.
func Approve(remarks string) Outcome {
	return Outcome{approve: true, remarks: strings.TrimSpace(remarks)}
}

// ErrRemarksRequired indicates a reject outcome without remarks.
var ErrRemarksRequired = errors.New("workflow: remarks required on reject")

// Reject builds a rejection outcome. Remarks must be non-empty after
// trimming whitespace.
func Reject(remarks string) (Outcome, error) {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return Outcome{}, ErrRemarksRequired
	}
	return Outcome{approve: false, remarks: remarks}, nil
}

// Approved reports whether the outcome is an approval.
func (o Outcome) Approved() bool { return o.approve }

// Remarks returns the decision remarks.
func (o Outcome) Remarks() string { return o.remarks }

// Status returns the terminal status the outcome produces.
func (o Outcome) Status() Status {
	if o.approve {
		return StatusApproved
	}
	return StatusRejected
}

// AuditAction returns the audit trail action for the outcome.
func (o Outcome) AuditAction() string {
	if o.approve {
		return "APPROVE"
	}
	return "REJECT"
}
