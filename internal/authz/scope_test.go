package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeWeightOrdering(t *testing.T) {
	assert.Less(t, ScopeWeight(ScopeOwn), ScopeWeight(ScopeDepartment))
	assert.Less(t, ScopeWeight(ScopeDepartment), ScopeWeight(ScopeSchool))
	assert.Less(t, ScopeWeight(ScopeSchool), ScopeWeight(ScopeAll))
}

func TestScopeWeightUnknown(t *testing.T) {
	assert.Equal(t, 0, ScopeWeight(Scope("GALAXY")))
	assert.Equal(t, 0, ScopeWeight(ScopeNone))
}

func TestScopeSufficient(t *testing.T) {
	cases := []struct {
		name      string
		available Scope
		required  Scope
		want      bool
	}{
		{"equal scopes", ScopeDepartment, ScopeDepartment, true},
		{"broader satisfies narrower", ScopeAll, ScopeOwn, true},
		{"school satisfies department", ScopeSchool, ScopeDepartment, true},
		{"narrower fails broader", ScopeOwn, ScopeDepartment, false},
		{"school fails all", ScopeSchool, ScopeAll, false},
		{"unknown available always fails", Scope("GALAXY"), ScopeOwn, false},
		{"unknown required", ScopeOwn, Scope("GALAXY"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ScopeSufficient(tc.available, tc.required))
		})
	}
}

// Monotonicity: a scope satisfying a requirement also satisfies every
// requirement below it in the order.
func TestScopeSufficientMonotonic(t *testing.T) {
	ordered := []Scope{ScopeOwn, ScopeDepartment, ScopeSchool, ScopeAll}
	for i, available := range ordered {
		for j, required := range ordered {
			assert.Equal(t, i >= j, ScopeSufficient(available, required),
				"available=%s required=%s", available, required)
		}
	}
}

func TestValidScope(t *testing.T) {
	for _, s := range []Scope{ScopeOwn, ScopeDepartment, ScopeSchool, ScopeAll} {
		assert.True(t, ValidScope(s))
	}
	assert.False(t, ValidScope(ScopeNone))
	assert.False(t, ValidScope(Scope("district")))
}
