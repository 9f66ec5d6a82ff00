package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tbourn/go-review-backend/internal/domain"
)

func TestCreateReview_CreatedPendingAndDuplicate(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")

	r := e.submit(t, "/reviews", "alice", p.ID)
	if r.Status != domain.StatusPending || r.SubjectType != domain.KindProfessor || r.SubjectID != p.ID {
		t.Fatalf("unexpected review: %+v", r)
	}

	w := e.do(t, http.MethodPost, "/api/v1/reviews", "alice", "", reviewBody(p.ID))
	expectCode(t, w, http.StatusConflict, ErrCodeDuplicateReview)

	// Another author may review the same subject.
	e.submit(t, "/reviews", "bob", p.ID)
}

func TestCreateReview_Unauthenticated(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	w := e.do(t, http.MethodPost, "/api/v1/reviews", "", "", reviewBody(p.ID))
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestCreateReview_ValidationDetails(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")

	body := reviewBody(p.ID)
	body["overall_rating"] = 6
	body["semester"] = "sometime"
	delete(body, "support_rating")

	w := e.do(t, http.MethodPost, "/api/v1/reviews", "alice", "", body)
	er := expectCode(t, w, http.StatusUnprocessableEntity, ErrCodeValidation)

	fields := map[string]string{}
	for _, d := range er.Details {
		fields[d.Field] = d.Message
	}
	for _, f := range []string{"overall_rating", "semester", "support_rating"} {
		if _, ok := fields[f]; !ok {
			t.Fatalf("missing detail for %s: %+v", f, er.Details)
		}
	}
	if fields["support_rating"] != "is required" {
		t.Fatalf("support_rating message = %q", fields["support_rating"])
	}

	w = e.do(t, http.MethodPost, "/api/v1/reviews", "alice", "", `{"subject_id":`)
	expectCode(t, w, http.StatusBadRequest, ErrCodeBadRequest)
}

func TestCreateReview_TextTooLong(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	body := reviewBody(p.ID)
	body["review_text"] = strings.Repeat("é", 2001)
	w := e.do(t, http.MethodPost, "/api/v1/reviews", "alice", "", body)
	expectCode(t, w, http.StatusUnprocessableEntity, ErrCodeValidation)
}

func TestCreateReview_UnknownSubjectAndWrongKind(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")

	w := e.do(t, http.MethodPost, "/api/v1/reviews", "alice", "", reviewBody("4d9c2d9e-3b8c-4c66-9a32-0c1f7c5a9b10"))
	expectCode(t, w, http.StatusBadRequest, ErrCodeSubjectNotFound)

	// A professor id is not a college.
	w = e.do(t, http.MethodPost, "/api/v1/college-reviews", "alice", "", reviewBody(p.ID))
	expectCode(t, w, http.StatusBadRequest, ErrCodeSubjectNotFound)
}

func TestCreateReview_CollegeDropsDisplayName(t *testing.T) {
	e := newTestEnv(t)
	c := e.college(t, "Rice University")
	body := reviewBody(c.ID)
	body["display_name"] = "night owl"
	w := e.do(t, http.MethodPost, "/api/v1/college-reviews", "alice", "", body)
	expectStatus(t, w, http.StatusCreated)
	r := decode[domain.Review](t, w)
	if r.SubjectType != domain.KindCollege || r.DisplayName != "" {
		t.Fatalf("unexpected college review: %+v", r)
	}
}

func TestCreateReview_IdempotentReplay(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")

	w1 := e.do(t, http.MethodPost, "/api/v1/reviews", "alice", "", reviewBody(p.ID), "Idempotency-Key", "key-1")
	expectStatus(t, w1, http.StatusCreated)
	first := decode[domain.Review](t, w1)
	if w1.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("first call must not be a replay")
	}

	w2 := e.do(t, http.MethodPost, "/api/v1/reviews", "alice", "", reviewBody(p.ID), "Idempotency-Key", "key-1")
	expectStatus(t, w2, http.StatusCreated)
	if w2.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}
	if got := decode[domain.Review](t, w2); got.ID != first.ID {
		t.Fatalf("replay returned %s, want %s", got.ID, first.ID)
	}

	w3 := e.do(t, http.MethodPost, "/api/v1/reviews", "alice", "", reviewBody(p.ID), "Idempotency-Key", "bad key!")
	expectStatus(t, w3, http.StatusBadRequest)
}

func TestGetReview_Visibility(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	r := e.submit(t, "/reviews", "alice", p.ID)

	expectStatus(t, e.do(t, http.MethodGet, "/api/v1/reviews/"+r.ID, "alice", "", nil), http.StatusOK)
	expectCode(t, e.do(t, http.MethodGet, "/api/v1/reviews/"+r.ID, "bob", "", nil), http.StatusNotFound, ErrCodeReviewNotFound)

	e.setStatus(t, r.ID, domain.StatusApproved)
	expectStatus(t, e.do(t, http.MethodGet, "/api/v1/reviews/"+r.ID, "bob", "", nil), http.StatusOK)

	// Wrong kind prefix.
	expectStatus(t, e.do(t, http.MethodGet, "/api/v1/college-reviews/"+r.ID, "alice", "", nil), http.StatusNotFound)
	expectCode(t, e.do(t, http.MethodGet, "/api/v1/reviews/not-a-uuid", "alice", "", nil), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestMyReviews(t *testing.T) {
	e := newTestEnv(t)
	p1 := e.professor(t, "Grace Hopper")
	p2 := e.professor(t, "Alan Turing")
	c := e.college(t, "Rice University")
	e.submit(t, "/reviews", "alice", p1.ID)
	e.submit(t, "/reviews", "alice", p2.ID)
	e.submit(t, "/college-reviews", "alice", c.ID)
	e.submit(t, "/reviews", "bob", p1.ID)

	w := e.do(t, http.MethodGet, "/api/v1/reviews/mine", "alice", "", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[ReviewListResponse](t, w); len(got.Reviews) != 2 {
		t.Fatalf("professor reviews = %d, want 2", len(got.Reviews))
	}

	w = e.do(t, http.MethodGet, "/api/v1/college-reviews/mine", "alice", "", nil)
	if got := decode[ReviewListResponse](t, w); len(got.Reviews) != 1 {
		t.Fatalf("college reviews = %d, want 1", len(got.Reviews))
	}

	w = e.do(t, http.MethodGet, "/api/v1/reviews/mine", "carol", "", nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"reviews":[]`) {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

func TestUpdateReview(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	r := e.submit(t, "/reviews", "alice", p.ID)
	e.setStatus(t, r.ID, domain.StatusApproved)

	// Rating-only edit keeps the status.
	w := e.do(t, http.MethodPut, "/api/v1/reviews/"+r.ID, "alice", "", map[string]any{"overall_rating": 2})
	expectStatus(t, w, http.StatusOK)
	got := decode[domain.Review](t, w)
	if got.OverallRating != 2 || got.Status != domain.StatusApproved {
		t.Fatalf("unexpected after rating edit: %+v", got)
	}

	// Text edit goes back to moderation.
	w = e.do(t, http.MethodPut, "/api/v1/reviews/"+r.ID, "alice", "", map[string]any{"review_text": "Updated after the final exam."})
	expectStatus(t, w, http.StatusOK)
	if got := decode[domain.Review](t, w); got.Status != domain.StatusPending {
		t.Fatalf("status=%s want pending", got.Status)
	}

	expectCode(t, e.do(t, http.MethodPut, "/api/v1/reviews/"+r.ID, "bob", "", map[string]any{"overall_rating": 1}),
		http.StatusForbidden, ErrCodeForbidden)
	expectCode(t, e.do(t, http.MethodPut, "/api/v1/reviews/"+r.ID, "alice", "", map[string]any{"overall_rating": 0}),
		http.StatusUnprocessableEntity, ErrCodeValidation)

	e.setStatus(t, r.ID, domain.StatusFlagged)
	expectCode(t, e.do(t, http.MethodPut, "/api/v1/reviews/"+r.ID, "alice", "", map[string]any{"overall_rating": 3}),
		http.StatusConflict, ErrCodeInvalidTransition)
}

func TestDeleteReview(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	r := e.submit(t, "/reviews", "alice", p.ID)

	expectCode(t, e.do(t, http.MethodDelete, "/api/v1/reviews/"+r.ID, "bob", "", nil), http.StatusForbidden, ErrCodeForbidden)

	w := e.do(t, http.MethodDelete, "/api/v1/reviews/"+r.ID, "alice", "", nil)
	expectStatus(t, w, http.StatusNoContent)
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body")
	}
	expectStatus(t, e.do(t, http.MethodGet, "/api/v1/reviews/"+r.ID, "alice", "", nil), http.StatusNotFound)

	// The author may review the subject again.
	e.submit(t, "/reviews", "alice", p.ID)
}

func TestFlagReview(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	r := e.submit(t, "/reviews", "alice", p.ID)

	w := e.do(t, http.MethodPost, "/api/v1/reviews/"+r.ID+"/flag", "bob", "", map[string]any{"flag_type": "spam", "reason": "ad"})
	expectStatus(t, w, http.StatusCreated)
	f := decode[domain.Flag](t, w)
	if f.ReviewID != r.ID || f.FlagType != domain.FlagSpam || f.Status != domain.FlagPending {
		t.Fatalf("unexpected flag: %+v", f)
	}
	if strings.Contains(w.Body.String(), "bob") {
		t.Fatalf("reporter id leaked: %s", w.Body.String())
	}

	expectCode(t, e.do(t, http.MethodPost, "/api/v1/reviews/"+r.ID+"/flag", "bob", "", map[string]any{"flag_type": "spam"}),
		http.StatusConflict, ErrCodeDuplicateFlag)
	expectCode(t, e.do(t, http.MethodPost, "/api/v1/reviews/"+r.ID+"/flag", "carol", "", map[string]any{"flag_type": "rude"}),
		http.StatusUnprocessableEntity, ErrCodeValidation)
	expectCode(t, e.do(t, http.MethodPost, "/api/v1/reviews/4d9c2d9e-3b8c-4c66-9a32-0c1f7c5a9b10/flag", "carol", "", map[string]any{"flag_type": "spam"}),
		http.StatusNotFound, ErrCodeReviewNotFound)
}

func TestVoteReview(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	r := e.submit(t, "/reviews", "alice", p.ID)

	// Pending reviews cannot be voted on.
	expectStatus(t, e.do(t, http.MethodPost, "/api/v1/reviews/"+r.ID+"/vote", "bob", "", map[string]any{"helpful": true}), http.StatusNotFound)

	e.setStatus(t, r.ID, domain.StatusApproved)
	expectStatus(t, e.do(t, http.MethodPost, "/api/v1/reviews/"+r.ID+"/vote", "bob", "", map[string]any{"helpful": true}), http.StatusNoContent)
	expectStatus(t, e.do(t, http.MethodPost, "/api/v1/reviews/"+r.ID+"/vote", "carol", "", map[string]any{"helpful": false}), http.StatusNoContent)
	expectCode(t, e.do(t, http.MethodPost, "/api/v1/reviews/"+r.ID+"/vote", "bob", "", map[string]any{"helpful": false}),
		http.StatusConflict, ErrCodeDuplicateVote)
	expectCode(t, e.do(t, http.MethodPost, "/api/v1/reviews/"+r.ID+"/vote", "dave", "", map[string]any{}),
		http.StatusUnprocessableEntity, ErrCodeValidation)

	w := e.do(t, http.MethodGet, "/api/v1/reviews/"+r.ID, "dave", "", nil)
	got := decode[domain.Review](t, w)
	if got.HelpfulCount != 1 || got.NotHelpfulCount != 1 {
		t.Fatalf("counts = %d/%d", got.HelpfulCount, got.NotHelpfulCount)
	}
}
