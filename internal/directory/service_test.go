package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

type mockRepo struct {
	schools     []School
	departments []Department
	positions   []Position

	createdDepartments int
}

func (m *mockRepo) ListSchools(ctx context.Context) ([]School, error) {
	return append([]School(nil), m.schools...), nil
}

func (m *mockRepo) GetSchool(ctx context.Context, id int64) (School, error) {
	for _, s := range m.schools {
		if s.ID == id {
			return s, nil
		}
	}
	return School{}, shared.ErrNotFound
}

func (m *mockRepo) CreateSchool(ctx context.Context, code, name string) (School, error) {
	s := School{ID: int64(len(m.schools) + 1), Code: code, Name: name, IsActive: true}
	m.schools = append(m.schools, s)
	return s, nil
}

func (m *mockRepo) UpdateSchool(ctx context.Context, id int64, code, name string) (School, error) {
	return School{ID: id, Code: code, Name: name, IsActive: true}, nil
}

func (m *mockRepo) DeactivateSchool(ctx context.Context, id int64) error { return nil }

func (m *mockRepo) ListDepartments(ctx context.Context, schoolID *int64) ([]Department, error) {
	return append([]Department(nil), m.departments...), nil
}

func (m *mockRepo) GetDepartment(ctx context.Context, id int64) (Department, error) {
	for _, d := range m.departments {
		if d.ID == id {
			return d, nil
		}
	}
	return Department{}, shared.ErrNotFound
}

func (m *mockRepo) CreateDepartment(ctx context.Context, schoolID int64, code, name string) (Department, error) {
	m.createdDepartments++
	d := Department{ID: int64(len(m.departments) + 1), SchoolID: schoolID, Code: code, Name: name, IsActive: true}
	m.departments = append(m.departments, d)
	return d, nil
}

func (m *mockRepo) UpdateDepartment(ctx context.Context, id int64, code, name string) (Department, error) {
	return Department{ID: id, Code: code, Name: name, IsActive: true}, nil
}

func (m *mockRepo) DeactivateDepartment(ctx context.Context, id int64) error { return nil }

func (m *mockRepo) ListPositions(ctx context.Context, departmentID *int64) ([]Position, error) {
	return append([]Position(nil), m.positions...), nil
}

func (m *mockRepo) GetPosition(ctx context.Context, id int64) (Position, error) {
	for _, p := range m.positions {
		if p.ID == id {
			return p, nil
		}
	}
	return Position{}, shared.ErrNotFound
}

func (m *mockRepo) CreatePosition(ctx context.Context, departmentID int64, code, name string) (Position, error) {
	p := Position{ID: int64(len(m.positions) + 1), DepartmentID: departmentID, Code: code, Name: name, IsActive: true}
	m.positions = append(m.positions, p)
	return p, nil
}

func (m *mockRepo) DeactivatePosition(ctx context.Context, id int64) error { return nil }

func TestListSchoolsSortsByNameCaseInsensitive(t *testing.T) {
	repo := &mockRepo{schools: []School{
		{ID: 1, Name: "zeta Academy"},
		{ID: 2, Name: "Alpha High"},
		{ID: 3, Name: "école Centrale"},
	}}
	svc := NewService(repo)

	schools, err := svc.ListSchools(context.Background())
	require.NoError(t, err)
	require.Len(t, schools, 3)
	assert.Equal(t, "Alpha High", schools[0].Name)
	assert.Equal(t, "école Centrale", schools[1].Name)
	assert.Equal(t, "zeta Academy", schools[2].Name)
}

func TestCreateSchoolNormalizesCode(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	school, err := svc.CreateSchool(context.Background(), " north ", " North Campus ")
	require.NoError(t, err)
	assert.Equal(t, "NORTH", school.Code)
	assert.Equal(t, "North Campus", school.Name)
}

func TestCreateSchoolRequiresName(t *testing.T) {
	svc := NewService(&mockRepo{})

	_, err := svc.CreateSchool(context.Background(), "N1", "   ")
	assert.Error(t, err)
}

func TestCreateDepartmentRequiresExistingSchool(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	_, err := svc.CreateDepartment(context.Background(), 99, "SCI", "Sciences")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Zero(t, repo.createdDepartments)
}

func TestCreatePositionRequiresExistingDepartment(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	_, err := svc.CreatePosition(context.Background(), 7, "HEAD", "Department Head")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
