package repo

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
)

func TestMapping_CreateGetDelete(t *testing.T) {
	db := newTestDB(t, &domain.AuthorMapping{})
	ctx := context.Background()

	m := &domain.AuthorMapping{ReviewID: "r1", AuthorID: "u1", SubjectType: domain.KindProfessor, SubjectID: "p1", IPAddress: "10.0.0.1"}
	if err := CreateMapping(ctx, db, m); err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}
	if m.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt should be defaulted")
	}

	err := AsCaller(ctx, db, "u1", func(tx *gorm.DB) error {
		got, err := GetMapping(ctx, tx, "r1", "u1")
		if err != nil {
			return err
		}
		if got.SubjectID != "p1" || got.IPAddress != "10.0.0.1" {
			t.Fatalf("unexpected mapping: %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AsCaller: %v", err)
	}

	// Another caller never sees it.
	if _, err := GetMapping(ctx, db, "r1", "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other author, got %v", err)
	}

	author, err := MappedAuthor(ctx, db, "r1")
	if err != nil || author != "u1" {
		t.Fatalf("MappedAuthor = %q err=%v", author, err)
	}

	// Delete is scoped by author.
	if err := DeleteMapping(ctx, db, "r1", "u2"); err != nil {
		t.Fatalf("DeleteMapping(other): %v", err)
	}
	if _, err := GetMapping(ctx, db, "r1", "u1"); err != nil {
		t.Fatalf("mapping should survive a foreign delete: %v", err)
	}
	if err := DeleteMapping(ctx, db, "r1", "u1"); err != nil {
		t.Fatalf("DeleteMapping: %v", err)
	}
	if _, err := MappedAuthor(ctx, db, "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMapping_DuplicateAuthorSubject_IsUniqueViolation(t *testing.T) {
	db := newTestDB(t, &domain.AuthorMapping{})
	ctx := context.Background()

	_ = CreateMapping(ctx, db, &domain.AuthorMapping{ReviewID: "r1", AuthorID: "u1", SubjectType: domain.KindCollege, SubjectID: "c1"})
	err := CreateMapping(ctx, db, &domain.AuthorMapping{ReviewID: "r2", AuthorID: "u1", SubjectType: domain.KindCollege, SubjectID: "c1"})
	if err == nil || !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestMappedReviewIDs_FiltersByAuthorAndKind(t *testing.T) {
	db := newTestDB(t, &domain.AuthorMapping{})
	ctx := context.Background()
	for _, m := range []domain.AuthorMapping{
		{ReviewID: "r1", AuthorID: "u1", SubjectType: domain.KindProfessor, SubjectID: "p1"},
		{ReviewID: "r2", AuthorID: "u1", SubjectType: domain.KindProfessor, SubjectID: "p2"},
		{ReviewID: "r3", AuthorID: "u1", SubjectType: domain.KindCollege, SubjectID: "c1"},
		{ReviewID: "r4", AuthorID: "u2", SubjectType: domain.KindProfessor, SubjectID: "p1"},
	} {
		m := m
		if err := CreateMapping(ctx, db, &m); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	ids, err := MappedReviewIDs(ctx, db, "u1", domain.KindProfessor)
	if err != nil || len(ids) != 2 {
		t.Fatalf("MappedReviewIDs = %v err=%v", ids, err)
	}
}

func TestAsCaller_PropagatesErrorAndRollsBack(t *testing.T) {
	db := newTestDB(t, &domain.AuthorMapping{})
	ctx := context.Background()
	boom := errors.New("boom")

	err := AsCaller(ctx, db, "u1", func(tx *gorm.DB) error {
		if err := CreateMapping(ctx, tx, &domain.AuthorMapping{ReviewID: "r1", AuthorID: "u1", SubjectType: domain.KindProfessor, SubjectID: "p1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := MappedAuthor(ctx, db, "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("insert inside failed AsCaller should be rolled back, got %v", err)
	}
}
