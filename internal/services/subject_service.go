package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/repo"
)

// SubjectService manages professors and colleges.
type SubjectService struct {
	DB *gorm.DB
	// Locale drives title casing of names.
	Locale language.Tag
}

// NewSubjectService returns a SubjectService using English casing rules.
func NewSubjectService(db *gorm.DB) *SubjectService {
	return &SubjectService{DB: db, Locale: language.English}
}

// ProfessorInput is the payload for a new professor.
type ProfessorInput struct {
	Name       string
	Department string
	CollegeID  string
}

// CollegeInput is the payload for a new college.
type CollegeInput struct {
	Name  string
	City  string
	State string
}

// CreateProfessor adds a professor. A non-empty CollegeID must reference an
// existing college.
func (s *SubjectService) CreateProfessor(ctx context.Context, in ProfessorInput) (*domain.Professor, error) {
	name := s.titleName(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	p := &domain.Professor{Name: name, Department: normalizeName(in.Department)}
	if id := strings.TrimSpace(in.CollegeID); id != "" {
		ok, err := repo.SubjectExists(ctx, s.DB, domain.KindCollege, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrSubjectNotFound
		}
		p.CollegeID = &id
	}
	if err := repo.CreateProfessor(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateCollege adds a college.
func (s *SubjectService) CreateCollege(ctx context.Context, in CollegeInput) (*domain.College, error) {
	name := s.titleName(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	c := &domain.College{Name: name, City: normalizeName(in.City), State: normalizeName(in.State)}
	if err := repo.CreateCollege(ctx, s.DB, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetProfessor returns a professor or ErrSubjectNotFound.
func (s *SubjectService) GetProfessor(ctx context.Context, id string) (*domain.Professor, error) {
	p, err := repo.GetProfessor(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrSubjectNotFound
	}
	return p, err
}

// GetCollege returns a college or ErrSubjectNotFound.
func (s *SubjectService) GetCollege(ctx context.Context, id string) (*domain.College, error) {
	c, err := repo.GetCollege(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrSubjectNotFound
	}
	return c, err
}

// ListProfessors returns a page of professors whose name contains search.
func (s *SubjectService) ListProfessors(ctx context.Context, search string, page, pageSize int) ([]domain.Professor, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return repo.ListProfessorsPage(ctx, s.DB, strings.TrimSpace(search), (page-1)*pageSize, pageSize)
}

// ListColleges returns a page of colleges whose name contains search.
func (s *SubjectService) ListColleges(ctx context.Context, search string, page, pageSize int) ([]domain.College, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return repo.ListCollegesPage(ctx, s.DB, strings.TrimSpace(search), (page-1)*pageSize, pageSize)
}

// titleName collapses whitespace and title-cases each word
// ("ada  LOVELACE" -> "Ada Lovelace").
func (s *SubjectService) titleName(name string) string {
	name = normalizeName(name)
	if name == "" {
		return ""
	}
	return cases.Title(s.Locale).String(strings.ToLower(name))
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
