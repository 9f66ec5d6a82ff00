package handlers

import (
	"net/http"
	"testing"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/services"
)

func TestReviewAction_TransitionsAndAudit(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	r := e.submit(t, "/reviews", "alice", p.ID)
	path := "/api/v1/moderation/reviews/" + r.ID + "/action"

	expectStatus(t, e.do(t, http.MethodPost, path, "alice", "", map[string]any{"action": "approve", "reason": "ok"}), http.StatusForbidden)

	er := expectCode(t, e.do(t, http.MethodPost, path, "mod", modRole, map[string]any{"action": "approve"}),
		http.StatusUnprocessableEntity, ErrCodeValidation)
	if len(er.Details) != 1 || er.Details[0].Field != "reason" {
		t.Fatalf("details: %+v", er.Details)
	}

	w := e.do(t, http.MethodPost, path, "mod", modRole, map[string]any{"action": "approve", "reason": "looks fine"})
	expectStatus(t, w, http.StatusOK)
	if got := decode[domain.Review](t, w); got.Status != domain.StatusApproved {
		t.Fatalf("status=%s", got.Status)
	}

	w = e.do(t, http.MethodGet, "/api/v1/professors/"+p.ID, "", "", nil)
	if got := decode[domain.Professor](t, w); got.TotalReviews != 1 || got.AverageRating != 4 {
		t.Fatalf("aggregate not refreshed: %+v", got)
	}

	expectStatus(t, e.do(t, http.MethodPost, path, "mod", modRole, map[string]any{"action": "remove", "reason": "doxxing"}), http.StatusOK)
	expectCode(t, e.do(t, http.MethodPost, path, "mod", modRole, map[string]any{"action": "approve", "reason": "appeal"}),
		http.StatusConflict, ErrCodeInvalidTransition)

	w = e.do(t, http.MethodGet, "/api/v1/moderation/logs?target_id="+r.ID, "mod", modRole, nil)
	expectStatus(t, w, http.StatusOK)
	logs := decode[ModerationLogsResponse](t, w)
	if len(logs.Logs) != 2 {
		t.Fatalf("logs=%d want 2", len(logs.Logs))
	}
	for _, l := range logs.Logs {
		if l.ModeratorID != "mod" || l.TargetID != r.ID {
			t.Fatalf("bad log: %+v", l)
		}
	}
}

func TestReviewAction_KindScoped(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	r := e.submit(t, "/reviews", "alice", p.ID)

	w := e.do(t, http.MethodPost, "/api/v1/moderation/college-reviews/"+r.ID+"/action", "mod", modRole,
		map[string]any{"action": "approve", "reason": "fine"})
	expectCode(t, w, http.StatusNotFound, ErrCodeReviewNotFound)
}

func TestFlagQueueAndResolve(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	r := e.submit(t, "/reviews", "alice", p.ID)
	e.setStatus(t, r.ID, domain.StatusApproved)

	w := e.do(t, http.MethodPost, "/api/v1/reviews/"+r.ID+"/flag", "bob", "", map[string]any{"flag_type": "harassment"})
	expectStatus(t, w, http.StatusCreated)
	flag := decode[domain.Flag](t, w)

	w = e.do(t, http.MethodGet, "/api/v1/moderation/flags", "mod", modRole, nil)
	expectStatus(t, w, http.StatusOK)
	q := decode[FlagQueueResponse](t, w)
	if len(q.Items) != 1 || q.Items[0].Flag.ID != flag.ID || q.Items[0].Subject.Name != "Grace Hopper" || q.Items[0].Review.ID != r.ID {
		t.Fatalf("queue: %+v", q.Items)
	}

	w = e.do(t, http.MethodGet, "/api/v1/moderation/college-flags", "mod", modRole, nil)
	if got := decode[FlagQueueResponse](t, w); len(got.Items) != 0 {
		t.Fatalf("college queue should be empty: %+v", got.Items)
	}
	expectCode(t, e.do(t, http.MethodGet, "/api/v1/moderation/flags?status=bogus", "mod", modRole, nil),
		http.StatusBadRequest, ErrCodeBadRequest)

	resolve := "/api/v1/moderation/flags/" + flag.ID + "/resolve"
	expectCode(t, e.do(t, http.MethodPost, resolve, "mod", modRole, map[string]any{"action": "ignore"}),
		http.StatusUnprocessableEntity, ErrCodeValidation)

	w = e.do(t, http.MethodPost, resolve, "mod", modRole, map[string]any{"action": "approve", "notes": "confirmed"})
	expectStatus(t, w, http.StatusOK)
	if got := decode[domain.Flag](t, w); got.Status != domain.FlagReviewed {
		t.Fatalf("flag status=%s", got.Status)
	}
	expectCode(t, e.do(t, http.MethodPost, resolve, "mod", modRole, map[string]any{"action": "dismiss"}),
		http.StatusConflict, ErrCodeAlreadyResolved)

	w = e.do(t, http.MethodGet, "/api/v1/moderation/reviews?status=flagged", "mod", modRole, nil)
	expectStatus(t, w, http.StatusOK)
	list := decode[ModerationReviewsResponse](t, w)
	if len(list.Reviews) != 1 || !list.Reviews[0].IsFlagged || len(list.Reviews[0].Flags) != 1 {
		t.Fatalf("flagged reviews: %+v", list.Reviews)
	}

	w = e.do(t, http.MethodGet, "/api/v1/moderation/flags?status=all", "mod", modRole, nil)
	if got := decode[FlagQueueResponse](t, w); len(got.Items) != 1 {
		t.Fatalf("all flags: %+v", got.Items)
	}
}

func TestModerationStats(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	c := e.college(t, "Rice University")
	e.submit(t, "/reviews", "alice", p.ID)
	e.submit(t, "/reviews", "bob", p.ID)
	e.submit(t, "/college-reviews", "alice", c.ID)

	w := e.do(t, http.MethodGet, "/api/v1/moderation/stats", "mod", modRole, nil)
	expectStatus(t, w, http.StatusOK)
	st := decode[services.ModerationStats](t, w)
	if st.TotalReviews != 2 || st.PendingFlags != 0 || st.PendingAnalysis != 3 {
		t.Fatalf("professor stats: %+v", st)
	}

	w = e.do(t, http.MethodGet, "/api/v1/moderation/college-stats", "mod", modRole, nil)
	if st := decode[services.ModerationStats](t, w); st.TotalReviews != 1 {
		t.Fatalf("college stats: %+v", st)
	}
}

func TestListReviewsByStatus_Defaults(t *testing.T) {
	e := newTestEnv(t)
	p := e.professor(t, "Grace Hopper")
	e.submit(t, "/reviews", "alice", p.ID)

	w := e.do(t, http.MethodGet, "/api/v1/moderation/reviews", "mod", modRole, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[ModerationReviewsResponse](t, w); len(got.Reviews) != 1 || got.Reviews[0].Flags == nil {
		t.Fatalf("pending list: %+v", got.Reviews)
	}
	expectCode(t, e.do(t, http.MethodGet, "/api/v1/moderation/reviews?status=archived", "mod", modRole, nil),
		http.StatusBadRequest, ErrCodeBadRequest)
}
