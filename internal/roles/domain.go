package roles

import "time"

// Role is a named permission grouping with a hierarchy level. Level 0 is
// the unconditional bypass tier; the evaluator short-circuits for it.
type Role struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	HierarchyLevel int       `json:"hierarchy_level"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Membership links a staff member to a role.
type Membership struct {
	StaffID   int64     `json:"staff_id"`
	RoleID    int64     `json:"role_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
