package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/repo"
)

func TestMeanRating(t *testing.T) {
	cases := []struct {
		in    []int
		avg   float64
		total int
	}{
		{nil, 0, 0},
		{[]int{5}, 5, 1},
		{[]int{4, 5}, 4.5, 2},
		{[]int{5, 4, 4}, 4.3, 3},
		{[]int{1, 2, 2}, 1.7, 3},
	}
	for _, c := range cases {
		avg, total := meanRating(c.in)
		if avg != c.avg || total != c.total {
			t.Errorf("meanRating(%v) = %v,%d; want %v,%d", c.in, avg, total, c.avg, c.total)
		}
	}
}

func TestRecompute_ApprovedOnlyAndIdempotent(t *testing.T) {
	db := newTestDB(t)
	a := &Aggregator{DB: db}
	ctx := context.Background()
	c := seedCollege(t, db, "Example College")
	seedReview(t, db, domain.KindCollege, c.ID, "a1", 5, domain.StatusApproved)
	seedReview(t, db, domain.KindCollege, c.ID, "a2", 4, domain.StatusApproved)
	seedReview(t, db, domain.KindCollege, c.ID, "a3", 1, domain.StatusPending)
	seedReview(t, db, domain.KindCollege, c.ID, "a4", 1, domain.StatusFlagged)

	for i := 0; i < 2; i++ {
		if err := a.Recompute(ctx, domain.KindCollege, c.ID); err != nil {
			t.Fatalf("Recompute: %v", err)
		}
		got, _ := repo.GetCollege(ctx, db, c.ID)
		if got.AverageRating != 4.5 || got.TotalReviews != 2 {
			t.Fatalf("run %d: aggregate = %v/%d; want 4.5/2", i, got.AverageRating, got.TotalReviews)
		}
	}

	if err := a.Recompute(ctx, domain.KindCollege, "missing"); !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("missing subject: %v", err)
	}
}
