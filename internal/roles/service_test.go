package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

type mockRepo struct {
	roles       map[int64]*Role
	memberships map[int64][]int64
	nextID      int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{roles: make(map[int64]*Role), memberships: make(map[int64][]int64), nextID: 1}
}

func (m *mockRepo) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return *r, nil
}

func (m *mockRepo) CreateRole(ctx context.Context, name, description string, hierarchyLevel int) (Role, error) {
	role := Role{ID: m.nextID, Name: name, Description: description, HierarchyLevel: hierarchyLevel, IsActive: true}
	m.roles[role.ID] = &role
	m.nextID++
	return role, nil
}

func (m *mockRepo) UpdateRole(ctx context.Context, id int64, name, description string, hierarchyLevel int) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	r.Name, r.Description, r.HierarchyLevel = name, description, hierarchyLevel
	return *r, nil
}

func (m *mockRepo) DeactivateRole(ctx context.Context, id int64) error {
	r, ok := m.roles[id]
	if !ok {
		return shared.ErrNotFound
	}
	r.IsActive = false
	return nil
}

func (m *mockRepo) AssignRole(ctx context.Context, staffID, roleID int64) error {
	m.memberships[roleID] = append(m.memberships[roleID], staffID)
	return nil
}

func (m *mockRepo) RemoveRole(ctx context.Context, staffID, roleID int64) error {
	return nil
}

func (m *mockRepo) ListMembers(ctx context.Context, roleID int64) ([]Membership, error) {
	var out []Membership
	for _, staffID := range m.memberships[roleID] {
		out = append(out, Membership{StaffID: staffID, RoleID: roleID, IsActive: true})
	}
	return out, nil
}

type mockInvalidator struct {
	actorCalls []int64
	allCalls   int
}

func (m *mockInvalidator) Actor(ctx context.Context, actorID int64) error {
	m.actorCalls = append(m.actorCalls, actorID)
	return nil
}

func (m *mockInvalidator) All(ctx context.Context) error {
	m.allCalls++
	return nil
}

func TestCreateRoleRequiresName(t *testing.T) {
	svc := NewService(newMockRepo(), &mockInvalidator{})
	_, err := svc.CreateRole(context.Background(), "  ", "", 1)
	assert.Error(t, err)
}

func TestCreateRoleDoesNotInvalidate(t *testing.T) {
	inv := &mockInvalidator{}
	svc := NewService(newMockRepo(), inv)
	_, err := svc.CreateRole(context.Background(), "registrar", "", 2)
	require.NoError(t, err)
	assert.Zero(t, inv.allCalls)
	assert.Empty(t, inv.actorCalls)
}

// Definition changes can affect any actor holding the role, so the whole
// decision cache is dropped.
func TestUpdateRoleInvalidatesAll(t *testing.T) {
	repo := newMockRepo()
	inv := &mockInvalidator{}
	svc := NewService(repo, inv)
	role, err := svc.CreateRole(context.Background(), "registrar", "", 2)
	require.NoError(t, err)

	_, err = svc.UpdateRole(context.Background(), role.ID, "head registrar", "", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, inv.allCalls)
}

func TestDeactivateRoleInvalidatesAll(t *testing.T) {
	repo := newMockRepo()
	inv := &mockInvalidator{}
	svc := NewService(repo, inv)
	role, err := svc.CreateRole(context.Background(), "registrar", "", 2)
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateRole(context.Background(), role.ID))
	assert.Equal(t, 1, inv.allCalls)
}

// Membership changes only affect one actor; invalidation is scoped to them.
func TestMembershipChangesInvalidateActor(t *testing.T) {
	repo := newMockRepo()
	inv := &mockInvalidator{}
	svc := NewService(repo, inv)
	role, err := svc.CreateRole(context.Background(), "registrar", "", 2)
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(context.Background(), 42, role.ID))
	require.NoError(t, svc.RemoveRole(context.Background(), 42, role.ID))
	assert.Equal(t, []int64{42, 42}, inv.actorCalls)
	assert.Zero(t, inv.allCalls)
}
