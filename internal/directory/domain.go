package directory

import "time"

// School is the top of the organization hierarchy.
type School struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Department belongs to a school.
type Department struct {
	ID        int64     `json:"id"`
	SchoolID  int64     `json:"school_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Position belongs to a department. Position-derived permissions are
// anticipated by the data model but not granted yet.
type Position struct {
	ID           int64     `json:"id"`
	DepartmentID int64     `json:"department_id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
