package authz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

// ============================================================================
// MOCK STORE
// ============================================================================

type mockStore struct {
	mu         sync.Mutex
	overrides  map[string]*Override
	direct     map[string]bool
	roleGrants map[string][]RoleGrant
	level0     map[int64]bool

	overrideCalls int
	directCalls   int
	roleCalls     int
	level0Calls   int

	failWith error
}

func newMockStore() *mockStore {
	return &mockStore{
		overrides:  make(map[string]*Override),
		direct:     make(map[string]bool),
		roleGrants: make(map[string][]RoleGrant),
		level0:     make(map[int64]bool),
	}
}

func tupleKey(actorID int64, resource, action string) string {
	return fmt.Sprintf("%d/%s/%s", actorID, resource, action)
}

// Requirements evaluate concurrently, so the counters take the lock the
// same way captureRecorder does.
func (m *mockStore) FindOverride(ctx context.Context, actorID int64, resource, action string) (*Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrideCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.overrides[tupleKey(actorID, resource, action)], nil
}

func (m *mockStore) FindDirectGrant(ctx context.Context, actorID int64, resource, action string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.directCalls++
	if m.failWith != nil {
		return false, m.failWith
	}
	return m.direct[tupleKey(actorID, resource, action)], nil
}

func (m *mockStore) FindRoleGrants(ctx context.Context, actorID int64, resource, action string) ([]RoleGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roleCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.roleGrants[tupleKey(actorID, resource, action)], nil
}

func (m *mockStore) HasHierarchyLevelZeroRole(ctx context.Context, actorID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level0Calls++
	if m.failWith != nil {
		return false, m.failWith
	}
	return m.level0[actorID], nil
}

func (m *mockStore) sourceCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overrideCalls + m.directCalls + m.roleCalls
}

// stubOwnership resolves placements from in-memory maps.
type stubOwnership struct {
	ownerIDs    map[int64]int64
	departments map[int64]int64
	schools     map[int64]int64
}

func (s stubOwnership) IsOwn(ctx context.Context, actor shared.Actor, resourceID int64) (bool, error) {
	return s.ownerIDs[resourceID] == actor.ID, nil
}

func (s stubOwnership) DepartmentID(ctx context.Context, resourceID int64) (*int64, error) {
	if id, ok := s.departments[resourceID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (s stubOwnership) SchoolID(ctx context.Context, resourceID int64) (*int64, error) {
	if id, ok := s.schools[resourceID]; ok {
		return &id, nil
	}
	return nil, nil
}

type captureRecorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *captureRecorder) Record(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type testEnv struct {
	evaluator   *Evaluator
	store       *mockStore
	recorder    *captureRecorder
	invalidator *Invalidator
	redis       *miniredis.Miniredis
}

func newTestEnv(t *testing.T, ownerships OwnershipRegistry) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newMockStore()
	cache := NewDecisionCache(client, 5*time.Minute, nil)
	bypass := NewBypassChecker(store, client, 10*time.Minute, nil)
	recorder := &captureRecorder{}
	evaluator := NewEvaluator(EvaluatorConfig{
		Store:      store,
		Cache:      cache,
		Bypass:     bypass,
		Ownerships: ownerships,
		Recorder:   recorder,
	})
	return &testEnv{
		evaluator:   evaluator,
		store:       store,
		recorder:    recorder,
		invalidator: NewInvalidator(cache, bypass),
		redis:       mr,
	}
}

func actorWith(id int64, school, department int64) shared.Actor {
	return shared.Actor{ID: id, SchoolID: &school, DepartmentID: &department}
}

func ptr(v int64) *int64 { return &v }

// ============================================================================
// PRECEDENCE
// ============================================================================

// An override denial wins over every other grant, including a role grant
// at scope ALL.
func TestOverrideDenyOutranksRoleGrant(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(2, 1, 1)
	env.store.overrides[tupleKey(2, "role", "DELETE")] = &Override{IsGranted: false}
	env.store.roleGrants[tupleKey(2, "role", "DELETE")] = []RoleGrant{{Scope: ScopeAll}}

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		Req("role", "DELETE", ScopeAll),
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	require.Len(t, result.DeniedReasons, 1)
	assert.Equal(t, "Denied by user override for role:DELETE", result.DeniedReasons[0])
	// The override was definitive: no later source was consulted.
	assert.Zero(t, env.store.directCalls)
	assert.Zero(t, env.store.roleCalls)
}

func TestOverrideGrant(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(3, 1, 1)
	env.store.overrides[tupleKey(3, "notification", "SEND")] = &Override{IsGranted: true}

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		Req("notification", "SEND", ScopeNone),
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// An expired override is not applicable; evaluation falls through.
func TestExpiredOverrideIgnored(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(4, 1, 1)
	expired := time.Now().Add(-time.Hour)
	env.store.overrides[tupleKey(4, "staff", "UPDATE")] = &Override{IsGranted: true, ValidUntil: &expired}

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		Req("staff", "UPDATE", ScopeNone),
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	require.Len(t, result.DeniedReasons, 1)
	assert.Equal(t, "no permission for staff:UPDATE", result.DeniedReasons[0])
}

func TestDirectGrantNotScopeFiltered(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(5, 1, 1)
	env.store.direct[tupleKey(5, "department", "UPDATE")] = true

	// Direct grants satisfy any requested scope, even ALL.
	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		Req("department", "UPDATE", ScopeAll),
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// ============================================================================
// BYPASS
// ============================================================================

// A hierarchy level 0 actor is allowed everything, even tuples with no
// matching grant anywhere, without consulting the sources.
func TestBypassSupremacy(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(9, 1, 1)
	env.store.level0[9] = true

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		Req("school", "DELETE", ScopeAll),
		Req("nonexistent", "PURGE", ScopeNone),
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Zero(t, env.store.sourceCalls())
	assert.Equal(t, 2, env.recorder.count())
	for _, rec := range env.recorder.records {
		assert.Equal(t, BypassReason, rec.Reason)
	}
}

func TestBypassFlagCached(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(9, 1, 1)
	env.store.level0[9] = true
	ctx := context.Background()

	_, err := env.evaluator.Evaluate(ctx, actor, []Requirement{Req("school", "DELETE", ScopeAll)})
	require.NoError(t, err)
	_, err = env.evaluator.Evaluate(ctx, actor, []Requirement{Req("school", "DELETE", ScopeAll)})
	require.NoError(t, err)
	assert.Equal(t, 1, env.store.level0Calls)
}

// Deactivating or re-levelling a level 0 role triggers a full invalidation;
// that must revoke the cached bypass flag of every former member, not just
// the decision entries.
func TestFullInvalidationRevokesCachedBypass(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(7, 1, 1)
	env.store.level0[7] = true
	ctx := context.Background()
	req := []Requirement{Req("school", "DELETE", ScopeAll)}

	result, err := env.evaluator.Evaluate(ctx, actor, req)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	env.store.level0[7] = false
	require.NoError(t, env.invalidator.All(ctx))

	result, err = env.evaluator.Evaluate(ctx, actor, req)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

// ============================================================================
// ROLE SCOPE NARROWING
// ============================================================================

// Role grant at SCHOOL scope satisfies a DEPARTMENT-scoped request.
func TestRoleGrantSchoolSatisfiesDepartment(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(1, 100, 10) // belongs to school S1
	env.store.roleGrants[tupleKey(1, "department", "UPDATE")] = []RoleGrant{{Scope: ScopeSchool}}

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		{Resource: "department", Action: "UPDATE", Scope: ScopeDepartment, ResourceID: ptr(10)},
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	require.Equal(t, 1, env.recorder.count())
	assert.Equal(t, "Allowed by role permission", env.recorder.records[0].Reason)
}

// The same grant is insufficient for an ALL-scoped request.
func TestRoleGrantSchoolInsufficientForAll(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(1, 100, 10)
	env.store.roleGrants[tupleKey(1, "department", "UPDATE")] = []RoleGrant{{Scope: ScopeSchool}}

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		{Resource: "department", Action: "UPDATE", Scope: ScopeAll, ResourceID: ptr(10)},
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	require.Len(t, result.DeniedReasons, 1)
	assert.Contains(t, result.DeniedReasons[0], "no permission for department:UPDATE")
}

// A requirement carrying a scope outside the known order is denied outright.
// Unknown scopes weigh zero in the sufficiency comparison, so letting one
// through would make any grant satisfy it.
func TestUnknownRequirementScopeDenied(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(8, 1, 1)
	env.store.roleGrants[tupleKey(8, "staff", "VIEW")] = []RoleGrant{{Scope: Scope("GALAXY")}}

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		Req("staff", "VIEW", Scope("GALAXY")),
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	require.Len(t, result.DeniedReasons, 1)
	assert.Equal(t, `unknown scope "GALAXY" for staff:VIEW`, result.DeniedReasons[0])
	assert.Zero(t, env.store.sourceCalls())
}

func TestRoleGrantWithoutScopeMatchesAnyRequest(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(1, 100, 10)
	env.store.roleGrants[tupleKey(1, "report", "VIEW")] = []RoleGrant{{Scope: ScopeNone}}

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		Req("report", "VIEW", ScopeAll),
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// ============================================================================
// OWNERSHIP FALLBACK
// ============================================================================

func TestOwnershipOwnScope(t *testing.T) {
	ownerships := OwnershipRegistry{
		"staff": stubOwnership{ownerIDs: map[int64]int64{42: 42}},
	}
	env := newTestEnv(t, ownerships)
	actor := actorWith(42, 1, 1)

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		{Resource: "staff", Action: "VIEW", Scope: ScopeOwn, ResourceID: ptr(42)},
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	env.redis.FlushAll()
	result, err = env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		{Resource: "staff", Action: "VIEW", Scope: ScopeOwn, ResourceID: ptr(7)},
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestOwnershipDepartmentScope(t *testing.T) {
	ownerships := OwnershipRegistry{
		"position": stubOwnership{departments: map[int64]int64{5: 10, 6: 99}},
	}
	env := newTestEnv(t, ownerships)
	actor := actorWith(1, 100, 10)

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		{Resource: "position", Action: "VIEW", Scope: ScopeDepartment, ResourceID: ptr(5)},
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	env.redis.FlushAll()
	result, err = env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		{Resource: "position", Action: "VIEW", Scope: ScopeDepartment, ResourceID: ptr(6)},
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestOwnershipSchoolScope(t *testing.T) {
	ownerships := OwnershipRegistry{
		"department": stubOwnership{schools: map[int64]int64{10: 100}},
	}
	env := newTestEnv(t, ownerships)
	actor := actorWith(1, 100, 10)

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		{Resource: "department", Action: "VIEW", Scope: ScopeSchool, ResourceID: ptr(10)},
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// Missing resource id fails closed with its dedicated reason.
func TestOwnershipMissingResourceID(t *testing.T) {
	ownerships := OwnershipRegistry{
		"staff": stubOwnership{},
	}
	env := newTestEnv(t, ownerships)
	actor := actorWith(1, 100, 10)

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		Req("staff", "VIEW", ScopeOwn),
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	require.Len(t, result.DeniedReasons, 1)
	assert.Equal(t, "no resource id for scope check", result.DeniedReasons[0])
}

// Unregistered resource types fail closed.
func TestOwnershipUnknownResourceType(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(1, 100, 10)

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		{Resource: "ledger", Action: "VIEW", Scope: ScopeOwn, ResourceID: ptr(1)},
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

// ============================================================================
// CACHE BEHAVIOUR
// ============================================================================

// Two immediate evaluations return the same decision and the second one
// does not touch the store.
func TestCacheIdempotence(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(1, 100, 10)
	env.store.roleGrants[tupleKey(1, "staff", "VIEW")] = []RoleGrant{{Scope: ScopeAll}}
	ctx := context.Background()
	req := []Requirement{Req("staff", "VIEW", ScopeOwn)}

	first, err := env.evaluator.Evaluate(ctx, actor, req)
	require.NoError(t, err)
	callsAfterFirst := env.store.sourceCalls()

	second, err := env.evaluator.Evaluate(ctx, actor, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, env.store.sourceCalls())
}

// After a grant change plus invalidation, the next evaluation reflects the
// new grant instead of a stale DENY.
func TestInvalidationReflectsNewGrant(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(1, 100, 10)
	ctx := context.Background()
	req := []Requirement{Req("position", "CREATE", ScopeNone)}

	result, err := env.evaluator.Evaluate(ctx, actor, req)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	env.store.roleGrants[tupleKey(1, "position", "CREATE")] = []RoleGrant{{Scope: ScopeAll}}
	require.NoError(t, env.invalidator.Actor(ctx, 1))

	result, err = env.evaluator.Evaluate(ctx, actor, req)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// Without invalidation the stale decision is served until TTL; the cache is
// the contract, the writer owns the invalidation call.
func TestStaleDecisionExpiresWithTTL(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(1, 100, 10)
	ctx := context.Background()
	req := []Requirement{Req("position", "CREATE", ScopeNone)}

	result, err := env.evaluator.Evaluate(ctx, actor, req)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	env.store.roleGrants[tupleKey(1, "position", "CREATE")] = []RoleGrant{{Scope: ScopeAll}}
	env.redis.FastForward(5*time.Minute + time.Second)

	result, err = env.evaluator.Evaluate(ctx, actor, req)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// A Redis outage degrades to recomputation from the store, not to failure.
func TestEvaluationSurvivesCacheOutage(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(1, 100, 10)
	env.store.roleGrants[tupleKey(1, "staff", "VIEW")] = []RoleGrant{{Scope: ScopeAll}}
	ctx := context.Background()
	req := []Requirement{Req("staff", "VIEW", ScopeOwn)}

	_, err := env.evaluator.Evaluate(ctx, actor, req)
	require.NoError(t, err)

	env.redis.Close()
	result, err := env.evaluator.Evaluate(ctx, actor, req)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// ============================================================================
// MULTIPLE REQUIREMENTS & FAILURES
// ============================================================================

// The aggregate is a logical AND with per-tuple reasons.
func TestMultipleRequirementsAllMustAllow(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(1, 100, 10)
	env.store.direct[tupleKey(1, "staff", "VIEW")] = true

	result, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		Req("staff", "VIEW", ScopeNone),
		Req("staff", "DELETE", ScopeNone),
	})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	require.Len(t, result.DeniedReasons, 1)
	assert.Equal(t, "no permission for staff:DELETE", result.DeniedReasons[0])
}

func TestEmptyRequirementsAllow(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	result, err := env.evaluator.Evaluate(context.Background(), actorWith(1, 1, 1), nil)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// Store unavailability surfaces as ErrEvaluationUnavailable, never as a
// silent allow or a plain deny.
func TestStoreOutageFailsClosedWithDistinctError(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(1, 100, 10)
	env.store.failWith = errors.New("connection refused")

	_, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		Req("staff", "VIEW", ScopeNone),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEvaluationUnavailable)
}

// Every resolved requirement is reported to the recorder.
func TestDecisionsAreRecorded(t *testing.T) {
	env := newTestEnv(t, OwnershipRegistry{})
	actor := actorWith(1, 100, 10)
	env.store.direct[tupleKey(1, "staff", "VIEW")] = true

	_, err := env.evaluator.Evaluate(context.Background(), actor, []Requirement{
		Req("staff", "VIEW", ScopeNone),
		Req("staff", "DELETE", ScopeNone),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, env.recorder.count())
}
