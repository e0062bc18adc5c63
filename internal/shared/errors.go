package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicate indicates a uniqueness violation on create.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInactive indicates the account or record is deactivated.
	ErrInactive = errors.New("inactive")
)
