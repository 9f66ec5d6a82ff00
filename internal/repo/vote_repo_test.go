package repo

import (
	"context"
	"testing"

	"github.com/tbourn/go-review-backend/internal/domain"
)

func TestVotes_UniqueAndCounts(t *testing.T) {
	db := newTestDB(t, &domain.ReviewVote{})
	ctx := context.Background()

	if err := CreateVote(ctx, db, "r1", "u1", true); err != nil {
		t.Fatalf("vote u1: %v", err)
	}
	if err := CreateVote(ctx, db, "r1", "u2", false); err != nil {
		t.Fatalf("vote u2: %v", err)
	}
	if err := CreateVote(ctx, db, "r1", "u3", true); err != nil {
		t.Fatalf("vote u3: %v", err)
	}
	if err := CreateVote(ctx, db, "r1", "u1", false); err == nil || !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation on second vote, got %v", err)
	}

	h, nh, err := VoteCounts(ctx, db, "r1")
	if err != nil || h != 2 || nh != 1 {
		t.Fatalf("VoteCounts = (%d,%d) err=%v", h, nh, err)
	}
}

func TestIncrementDailyCounter(t *testing.T) {
	db := newTestDB(t, &domain.DailyCounter{})
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := IncrementDailyCounter(ctx, db, "u1", "review_create", "2025-05-01")
		if err != nil || got != want {
			t.Fatalf("increment #%d = %d err=%v", want, got, err)
		}
	}
	// Separate day starts from one.
	got, err := IncrementDailyCounter(ctx, db, "u1", "review_create", "2025-05-02")
	if err != nil || got != 1 {
		t.Fatalf("new day = %d err=%v", got, err)
	}
}
