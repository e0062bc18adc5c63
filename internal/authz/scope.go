package authz

// scopeWeights fixes the linear order of scopes. Unknown values weigh 0 and
// therefore never satisfy anything.
var scopeWeights = map[Scope]int{
	ScopeOwn:        1,
	ScopeDepartment: 2,
	ScopeSchool:     3,
	ScopeAll:        4,
}

// ScopeWeight returns the ordering weight of a scope, 0 for unknown values.
func ScopeWeight(s Scope) int {
	return scopeWeights[s]
}

// ScopeSufficient reports whether a grant at scope available satisfies a
// request at scope required. A grant is sufficient when it is at least as
// broad as the request.
func ScopeSufficient(available, required Scope) bool {
	return ScopeWeight(available) >= ScopeWeight(required)
}

// ValidScope reports whether the value is one of the known scope levels.
func ValidScope(s Scope) bool {
	_, ok := scopeWeights[s]
	return ok
}
