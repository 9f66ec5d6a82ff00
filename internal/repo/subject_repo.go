// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the reviewable
// subjects (professors and colleges).
//
// Functions that accept a domain.SubjectKind dispatch to the matching table,
// so the service layer can treat both kinds uniformly.
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
)

// subjectModel returns an empty model for kind, used to address its table.
func subjectModel(kind domain.SubjectKind) (any, error) {
	switch kind {
	case domain.KindProfessor:
		return &domain.Professor{}, nil
	case domain.KindCollege:
		return &domain.College{}, nil
	default:
		return nil, fmt.Errorf("unknown subject kind %q", kind)
	}
}

// CreateProfessor inserts a professor with a fresh UUID.
func CreateProfessor(ctx context.Context, db *gorm.DB, p *domain.Professor) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(p).Error
}

// CreateCollege inserts a college with a fresh UUID.
func CreateCollege(ctx context.Context, db *gorm.DB, c *domain.College) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(c).Error
}

// GetProfessor fetches a professor by id, or ErrNotFound.
func GetProfessor(ctx context.Context, db *gorm.DB, id string) (*domain.Professor, error) {
	var p domain.Professor
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetCollege fetches a college by id, or ErrNotFound.
func GetCollege(ctx context.Context, db *gorm.DB, id string) (*domain.College, error) {
	var c domain.College
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func nameFilter(q *gorm.DB, search string) *gorm.DB {
	if s := strings.TrimSpace(search); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	return q
}

// ListProfessorsPage returns professors ordered by name, optionally filtered
// by a case-insensitive name substring, together with the filtered total.
func ListProfessorsPage(ctx context.Context, db *gorm.DB, search string, offset, limit int) ([]domain.Professor, int64, error) {
	var total int64
	if err := nameFilter(db.WithContext(ctx).Model(&domain.Professor{}), search).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	out := []domain.Professor{}
	err := nameFilter(db.WithContext(ctx), search).
		Order("name ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

// ListCollegesPage is the college counterpart of ListProfessorsPage.
func ListCollegesPage(ctx context.Context, db *gorm.DB, search string, offset, limit int) ([]domain.College, int64, error) {
	var total int64
	if err := nameFilter(db.WithContext(ctx).Model(&domain.College{}), search).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	out := []domain.College{}
	err := nameFilter(db.WithContext(ctx), search).
		Order("name ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

// SubjectExists reports whether a non-deleted subject of kind has id.
func SubjectExists(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, id string) (bool, error) {
	model, err := subjectModel(kind)
	if err != nil {
		return false, err
	}
	var n int64
	err = db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// SubjectNames resolves display names for the given ids. Missing ids are
// simply absent from the result.
func SubjectNames(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	model, err := subjectModel(kind)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID   string
		Name string
	}
	if err := db.WithContext(ctx).Model(model).Select("id, name").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}

// UpdateSubjectAggregate overwrites the denormalized rating fields. It
// returns ErrNotFound when the subject does not exist.
func UpdateSubjectAggregate(ctx context.Context, db *gorm.DB, kind domain.SubjectKind, id string, avg float64, total int) error {
	model, err := subjectModel(kind)
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(model).
		Where("id = ?", id).
		Updates(map[string]any{
			"average_rating": avg,
			"total_reviews":  total,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
