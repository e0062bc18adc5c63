package directory

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// RepositoryPort lists what the service needs from persistence.
type RepositoryPort interface {
	ListSchools(ctx context.Context) ([]School, error)
	GetSchool(ctx context.Context, id int64) (School, error)
	CreateSchool(ctx context.Context, code, name string) (School, error)
	UpdateSchool(ctx context.Context, id int64, code, name string) (School, error)
	DeactivateSchool(ctx context.Context, id int64) error

	ListDepartments(ctx context.Context, schoolID *int64) ([]Department, error)
	GetDepartment(ctx context.Context, id int64) (Department, error)
	CreateDepartment(ctx context.Context, schoolID int64, code, name string) (Department, error)
	UpdateDepartment(ctx context.Context, id int64, code, name string) (Department, error)
	DeactivateDepartment(ctx context.Context, id int64) error

	ListPositions(ctx context.Context, departmentID *int64) ([]Position, error)
	GetPosition(ctx context.Context, id int64) (Position, error)
	CreatePosition(ctx context.Context, departmentID int64, code, name string) (Position, error)
	DeactivatePosition(ctx context.Context, id int64) error
}

// Service carries org-hierarchy business rules.
type Service struct {
	repo     RepositoryPort
	collator *collate.Collator
}

// NewService constructs the directory service.
func NewService(repo RepositoryPort) *Service {
	// Names come from humans in mixed scripts; byte order sorts them badly.
	return &Service{repo: repo, collator: collate.New(language.Und, collate.IgnoreCase)}
}

func normalizeCodeName(code, name string) (string, string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" {
		return "", "", fmt.Errorf("code is required")
	}
	if name == "" {
		return "", "", fmt.Errorf("name is required")
	}
	return code, name, nil
}

// ListSchools returns schools sorted by display name.
func (s *Service) ListSchools(ctx context.Context) ([]School, error) {
	schools, err := s.repo.ListSchools(ctx)
	if err != nil {
		return nil, err
	}
	s.collator.Sort(schoolsByName(schools))
	return schools, nil
}

func (s *Service) GetSchool(ctx context.Context, id int64) (School, error) {
	return s.repo.GetSchool(ctx, id)
}

func (s *Service) CreateSchool(ctx context.Context, code, name string) (School, error) {
	code, name, err := normalizeCodeName(code, name)
	if err != nil {
		return School{}, err
	}
	return s.repo.CreateSchool(ctx, code, name)
}

func (s *Service) UpdateSchool(ctx context.Context, id int64, code, name string) (School, error) {
	code, name, err := normalizeCodeName(code, name)
	if err != nil {
		return School{}, err
	}
	return s.repo.UpdateSchool(ctx, id, code, name)
}

func (s *Service) DeactivateSchool(ctx context.Context, id int64) error {
	return s.repo.DeactivateSchool(ctx, id)
}

// ListDepartments returns departments sorted by display name.
func (s *Service) ListDepartments(ctx context.Context, schoolID *int64) ([]Department, error) {
	departments, err := s.repo.ListDepartments(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	s.collator.Sort(departmentsByName(departments))
	return departments, nil
}

func (s *Service) GetDepartment(ctx context.Context, id int64) (Department, error) {
	return s.repo.GetDepartment(ctx, id)
}

func (s *Service) CreateDepartment(ctx context.Context, schoolID int64, code, name string) (Department, error) {
	code, name, err := normalizeCodeName(code, name)
	if err != nil {
		return Department{}, err
	}
	if _, err := s.repo.GetSchool(ctx, schoolID); err != nil {
		return Department{}, err
	}
	return s.repo.CreateDepartment(ctx, schoolID, code, name)
}

func (s *Service) UpdateDepartment(ctx context.Context, id int64, code, name string) (Department, error) {
	code, name, err := normalizeCodeName(code, name)
	if err != nil {
		return Department{}, err
	}
	return s.repo.UpdateDepartment(ctx, id, code, name)
}

func (s *Service) DeactivateDepartment(ctx context.Context, id int64) error {
	return s.repo.DeactivateDepartment(ctx, id)
}

// ListPositions returns positions sorted by display name.
func (s *Service) ListPositions(ctx context.Context, departmentID *int64) ([]Position, error) {
	positions, err := s.repo.ListPositions(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	s.collator.Sort(positionsByName(positions))
	return positions, nil
}

func (s *Service) GetPosition(ctx context.Context, id int64) (Position, error) {
	return s.repo.GetPosition(ctx, id)
}

func (s *Service) CreatePosition(ctx context.Context, departmentID int64, code, name string) (Position, error) {
	code, name, err := normalizeCodeName(code, name)
	if err != nil {
		return Position{}, err
	}
	if _, err := s.repo.GetDepartment(ctx, departmentID); err != nil {
		return Position{}, err
	}
	return s.repo.CreatePosition(ctx, departmentID, code, name)
}

func (s *Service) DeactivatePosition(ctx context.Context, id int64) error {
	return s.repo.DeactivatePosition(ctx, id)
}

// collate.Lister adapters so the collator can sort in place.

type schoolsByName []School

func (x schoolsByName) Len() int           { return len(x) }
func (x schoolsByName) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }
func (x schoolsByName) Bytes(i int) []byte { return []byte(x[i].Name) }

type departmentsByName []Department

func (x departmentsByName) Len() int           { return len(x) }
func (x departmentsByName) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }
func (x departmentsByName) Bytes(i int) []byte { return []byte(x[i].Name) }

type positionsByName []Position

func (x positionsByName) Len() int           { return len(x) }
func (x positionsByName) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }
func (x positionsByName) Bytes(i int) []byte { return []byte(x[i].Name) }
