package shared

// Resource type names the authorization engine reasons about. Ownership
// resolvers are registered under these names.
const (
	ResourceSchool       = "school"
	ResourceDepartment   = "department"
	ResourcePosition     = "position"
	ResourceStaff        = "staff"
	ResourceRole         = "role"
	ResourcePermission   = "permission"
	ResourceNotification = "notification"
	ResourceAudit        = "audit"
)

// Action names used in permission tuples.
const (
	ActionView   = "VIEW"
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionGrant  = "GRANT"
	ActionSend   = "SEND"
)
