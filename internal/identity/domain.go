package identity

import (
	"time"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

// Session is an authenticated session resolved from a bearer token. The
// actor snapshot is captured at login; affiliation changes take effect on
// the next login or an explicit session refresh.
type Session struct {
	Token     string       `json:"token"`
	Actor     shared.Actor `json:"actor"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// credentials is the staff row the login flow verifies against.
type credentials struct {
	StaffID      int64
	PasswordHash string
	SchoolID     *int64
	DepartmentID *int64
	PositionID   *int64
}
