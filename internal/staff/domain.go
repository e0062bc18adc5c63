package staff

import "time"

// Member is one staff account. The affiliation fields feed ownership
// checks, so every change to them must flow through the service layer
// where decision caches get invalidated.
type Member struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	SchoolID     *int64     `json:"school_id,omitempty"`
	DepartmentID *int64     `json:"department_id,omitempty"`
	PositionID   *int64     `json:"position_id,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Affiliation is the placement of a member inside the org hierarchy.
type Affiliation struct {
	SchoolID     *int64 `json:"school_id"`
	DepartmentID *int64 `json:"department_id"`
	PositionID   *int64 `json:"position_id"`
}
