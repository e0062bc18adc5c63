package staff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockRepo struct {
	lastHash string
	members  map[int64]Member
}

func newMockRepo() *mockRepo {
	return &mockRepo{members: map[int64]Member{}}
}

func (m *mockRepo) List(ctx context.Context, departmentID *int64) ([]Member, error) {
	return nil, nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (Member, error) {
	return m.members[id], nil
}

func (m *mockRepo) Create(ctx context.Context, email, fullName, passwordHash string, aff Affiliation) (Member, error) {
	m.lastHash = passwordHash
	member := Member{ID: int64(len(m.members) + 1), Email: email, FullName: fullName,
		SchoolID: aff.SchoolID, DepartmentID: aff.DepartmentID, PositionID: aff.PositionID, IsActive: true}
	m.members[member.ID] = member
	return member, nil
}

func (m *mockRepo) UpdateProfile(ctx context.Context, id int64, email, fullName string) (Member, error) {
	return Member{ID: id, Email: email, FullName: fullName, IsActive: true}, nil
}

func (m *mockRepo) UpdateAffiliation(ctx context.Context, id int64, aff Affiliation) (Member, error) {
	return Member{ID: id, SchoolID: aff.SchoolID, DepartmentID: aff.DepartmentID, PositionID: aff.PositionID, IsActive: true}, nil
}

func (m *mockRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	m.lastHash = passwordHash
	return nil
}

func (m *mockRepo) Deactivate(ctx context.Context, id int64) error { return nil }

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

func TestCreateHashesPassword(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockInvalidator{})
	svc.bcryptCost = bcrypt.MinCost

	_, err := svc.Create(context.Background(), "jamie@school.test", "Jamie Doe", "s3cretpass", Affiliation{})
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", repo.lastHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.lastHash), []byte("s3cretpass")))
}

func TestCreateRejectsShortPassword(t *testing.T) {
	svc := NewService(newMockRepo(), &mockInvalidator{})

	_, err := svc.Create(context.Background(), "jamie@school.test", "Jamie Doe", "short", Affiliation{})
	assert.Error(t, err)
}

func TestUpdateAffiliationInvalidatesActor(t *testing.T) {
	inv := &mockInvalidator{}
	svc := NewService(newMockRepo(), inv)

	schoolID := int64(3)
	_, err := svc.UpdateAffiliation(context.Background(), 42, Affiliation{SchoolID: &schoolID})
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, inv.actorCalls)
	assert.Zero(t, inv.allCalls)
}

func TestUpdateProfileDoesNotInvalidate(t *testing.T) {
	inv := &mockInvalidator{}
	svc := NewService(newMockRepo(), inv)

	_, err := svc.UpdateProfile(context.Background(), 42, "new@school.test", "Jamie Doe")
	require.NoError(t, err)
	assert.Empty(t, inv.actorCalls)
	assert.Zero(t, inv.allCalls)
}

func TestDeactivateInvalidatesActor(t *testing.T) {
	inv := &mockInvalidator{}
	svc := NewService(newMockRepo(), inv)

	require.NoError(t, svc.Deactivate(context.Background(), 7))
	assert.Equal(t, []int64{7}, inv.actorCalls)
}
