package roles

import "time"

// Role mirrors the static role set in the database for referential
// integrity with users. The permission table itself lives in internal/perm
// and is not mutated at runtime.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Wildcard    bool      `json:"wildcard"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
