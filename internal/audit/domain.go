// Package audit records and queries the append-only trail of
// state-changing actions.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one immutable audit record. Entries are never mutated or
// deleted; ordering is newest-first by occurrence time, ties broken by
// insertion sequence.
type Entry struct {
	ID         int64     `json:"id"`
	ActorID    int64     `json:"actor_id"`
	Action     string    `json:"action"`
	Module     string    `json:"module"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	Outcome    string    `json:"outcome"`
	At         time.Time `json:"at"`
}

// Audit actions recorded by the workflow engine.
const (
	ActionSubmit  = "SUBMIT"
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// Filters narrows a timeline query. Zero values mean "no filter".
type Filters struct {
	Module   string
	Action   string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}
