// Package services – ReviewService
//
// ReviewService owns the author-facing review lifecycle: submission, edit,
// delete, "my reviews", public listing and helpfulness votes. Submission is a
// saga of three writes (review, author mapping, analysis job) whose completed
// steps are undone when a later one fails. Content analysis happens later in
// the worker; a new review is always returned in pending status.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/metrics"
	"github.com/tbourn/go-review-backend/internal/quota"
	"github.com/tbourn/go-review-backend/internal/repo"
	"github.com/tbourn/go-review-backend/internal/saga"
)

// MaxReviewTextRunes caps review_text.
const MaxReviewTextRunes = 2000

const (
	stepReview  = "review"
	stepMapping = "author_mapping"
	stepJob     = "analysis_job"
)

// ReviewInput is a new review as submitted by its author.
type ReviewInput struct {
	SubjectID        string
	OverallRating    int
	TeachingRating   int
	DifficultyRating int
	SupportRating    int
	ReviewText       string
	CourseCode       string
	Semester         string
	DisplayName      string
}

// ReviewPatch carries the fields of a partial update; nil means unchanged.
type ReviewPatch struct {
	OverallRating    *int
	TeachingRating   *int
	DifficultyRating *int
	SupportRating    *int
	ReviewText       *string
	CourseCode       *string
	Semester         *string
	DisplayName      *string
}

// SubmitMeta is request metadata stored with the author mapping.
type SubmitMeta struct {
	IPAddress      string
	UserAgent      string
	IdempotencyKey string
}

// ReviewService implements the author-facing review use-cases.
type ReviewService struct {
	DB         *gorm.DB
	Ledger     *Ledger
	Aggregator *Aggregator

	// Quota limits submissions per author per UTC day; nil disables it.
	Quota            quota.Limiter
	MaxReviewsPerDay int

	// IdempotencyTTL bounds how long a replayed Idempotency-Key returns the
	// original review.
	IdempotencyTTL time.Duration

	// Wake is called after a job is enqueued so the worker does not wait for
	// its next poll. May be nil.
	Wake func()
}

// NewReviewService wires a ReviewService with its ledger and aggregator.
func NewReviewService(db *gorm.DB, q quota.Limiter, maxPerDay int) *ReviewService {
	return &ReviewService{
		DB:               db,
		Ledger:           &Ledger{DB: db},
		Aggregator:       &Aggregator{DB: db},
		Quota:            q,
		MaxReviewsPerDay: maxPerDay,
		IdempotencyTTL:   24 * time.Hour,
	}
}

func reviewTracer() trace.Tracer { return otel.Tracer("services/ReviewService") }

// Create submits a review by authorID. The second return value reports an
// idempotent replay, in which case the stored review is returned unchanged.
//
// Errors: ErrInvalidKind, ErrInvalidRating, ErrTextTooLong,
// ErrSubjectNotFound, ErrQuotaExceeded, ErrDuplicateReview.
func (s *ReviewService) Create(ctx context.Context, kind domain.SubjectKind, authorID string, in ReviewInput, meta SubmitMeta) (*domain.Review, bool, error) {
	ctx, span := reviewTracer().Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("review.kind", string(kind)),
			attribute.String("subject.id", in.SubjectID),
		),
	)
	defer span.End()

	if !kind.Valid() {
		return nil, false, ErrInvalidKind
	}
	in.ReviewText = strings.TrimSpace(in.ReviewText)
	if err := validateInput(in); err != nil {
		return nil, false, err
	}
	if kind != domain.KindProfessor {
		in.DisplayName = ""
	}

	scope := "review:create:" + string(kind)
	if meta.IdempotencyKey != "" {
		rec, err := repo.GetIdempotency(ctx, s.DB, authorID, scope, meta.IdempotencyKey, time.Now().UTC())
		if err == nil && rec != nil {
			if r, err := repo.GetReview(ctx, s.DB, kind, rec.ResourceID); err == nil {
				return r, true, nil
			}
		}
	}

	exists, err := repo.SubjectExists(ctx, s.DB, kind, in.SubjectID)
	if err != nil {
		return nil, false, fmt.Errorf("check subject: %w", err)
	}
	if !exists {
		return nil, false, ErrSubjectNotFound
	}

	if s.Quota != nil {
		ok, err := s.Quota.Allow(ctx, authorID, quota.ActionReviewCreate, s.MaxReviewsPerDay)
		switch {
		case err != nil:
			log.Ctx(ctx).Warn().Err(err).Msg("quota check failed, allowing submission")
		case !ok:
			metrics.QuotaRejections.WithLabelValues(quota.ActionReviewCreate).Inc()
			return nil, false, ErrQuotaExceeded
		}
	}

	dup, err := s.Ledger.HasActiveReview(ctx, authorID, kind, in.SubjectID)
	if err != nil {
		return nil, false, fmt.Errorf("check duplicate: %w", err)
	}
	if dup {
		return nil, false, ErrDuplicateReview
	}

	review := &domain.Review{
		SubjectType:      kind,
		SubjectID:        in.SubjectID,
		OverallRating:    in.OverallRating,
		TeachingRating:   in.TeachingRating,
		DifficultyRating: in.DifficultyRating,
		SupportRating:    in.SupportRating,
		ReviewText:       in.ReviewText,
		CourseCode:       strings.TrimSpace(in.CourseCode),
		Semester:         strings.TrimSpace(in.Semester),
		DisplayName:      strings.TrimSpace(in.DisplayName),
		Status:           domain.StatusPending,
	}
	var job *domain.AnalysisJob

	err = saga.Run(ctx,
		saga.Step{
			Name:   stepReview,
			Action: func(ctx context.Context) error { return repo.CreateReview(ctx, s.DB, review) },
			Compensate: func(ctx context.Context) error {
				return repo.HardDeleteReview(ctx, s.DB, review.ID)
			},
		},
		saga.Step{
			Name: stepMapping,
			Action: func(ctx context.Context) error {
				return s.Ledger.Record(ctx, s.DB, review, authorID, meta.IPAddress, meta.UserAgent)
			},
			Compensate: func(ctx context.Context) error {
				return s.Ledger.Forget(ctx, s.DB, review.ID, authorID)
			},
		},
		saga.Step{
			Name: stepJob,
			Action: func(ctx context.Context) error {
				var err error
				job, err = repo.EnqueueAnalysisJob(ctx, s.DB, kind, review.ID)
				return err
			},
		},
	)
	if err != nil {
		span.RecordError(err)
		var se *saga.StepError
		if errors.As(err, &se) && se.Step == stepMapping && repo.IsUniqueViolation(se.Err) {
			return nil, false, ErrDuplicateReview
		}
		return nil, false, fmt.Errorf("create review: %w", err)
	}

	s.recompute(ctx, kind, review.SubjectID)

	if meta.IdempotencyKey != "" {
		if _, err := repo.CreateIdempotency(ctx, s.DB, authorID, scope, meta.IdempotencyKey, review.ID, 201, s.IdempotencyTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			log.Ctx(ctx).Warn().Err(err).Msg("idempotency record not stored")
		}
	}

	metrics.ReviewsSubmitted.WithLabelValues(string(kind)).Inc()
	log.Ctx(ctx).Info().Str("review_id", review.ID).Str("job_id", job.ID).Msg("review submitted")
	s.wake()
	return review, false, nil
}

// Update applies patch to a review owned by callerID. A text change sends the
// review back to pending and queues a new analysis. Flagged, removed and
// rejected reviews cannot be edited.
func (s *ReviewService) Update(ctx context.Context, kind domain.SubjectKind, reviewID, callerID string, patch ReviewPatch) (*domain.Review, error) {
	ctx, span := reviewTracer().Start(ctx, "Update",
		trace.WithAttributes(attribute.String("review.kind", string(kind)), attribute.String("review.id", reviewID)),
	)
	defer span.End()

	current, err := s.owned(ctx, kind, reviewID, callerID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.StatusPending && current.Status != domain.StatusApproved {
		return nil, ErrInvalidTransition
	}

	fields, textChanged, err := patchFields(kind, current, patch)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return current, nil
	}
	if textChanged {
		fields["status"] = domain.StatusPending
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateReviewFields(ctx, tx, reviewID, fields); err != nil {
			return err
		}
		if textChanged {
			_, err := repo.EnqueueAnalysisJob(ctx, tx, kind, reviewID)
			return err
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.recompute(ctx, kind, current.SubjectID)
	if textChanged {
		s.wake()
	}
	return repo.GetReview(ctx, s.DB, kind, reviewID)
}

// Delete removes a review owned by callerID: the author mapping is deleted
// and the review soft-deleted in one transaction.
func (s *ReviewService) Delete(ctx context.Context, kind domain.SubjectKind, reviewID, callerID string) error {
	ctx, span := reviewTracer().Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("review.kind", string(kind)), attribute.String("review.id", reviewID)),
	)
	defer span.End()

	current, err := s.owned(ctx, kind, reviewID, callerID)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Ledger.Forget(ctx, tx, reviewID, callerID); err != nil {
			return err
		}
		return repo.SoftDeleteReview(ctx, tx, reviewID)
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete review: %w", err)
	}
	s.recompute(ctx, kind, current.SubjectID)
	return nil
}

// Mine returns every review of kind written by callerID, in any status.
func (s *ReviewService) Mine(ctx context.Context, callerID string, kind domain.SubjectKind) ([]domain.Review, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	ids, err := s.Ledger.ReviewIDsForAuthor(ctx, callerID, kind)
	if err != nil {
		return nil, err
	}
	return repo.ListReviewsByIDs(ctx, s.DB, kind, ids)
}

// ListForSubject returns a page of approved reviews of a subject, newest first.
func (s *ReviewService) ListForSubject(ctx context.Context, kind domain.SubjectKind, subjectID string, page, pageSize int) ([]domain.Review, int64, error) {
	if !kind.Valid() {
		return nil, 0, ErrInvalidKind
	}
	exists, err := repo.SubjectExists(ctx, s.DB, kind, subjectID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, ErrSubjectNotFound
	}
	page, pageSize = normalizePage(page, pageSize)
	return repo.ListApprovedPage(ctx, s.DB, kind, subjectID, (page-1)*pageSize, pageSize)
}

// Get returns an approved review, or any review owned by callerID.
func (s *ReviewService) Get(ctx context.Context, kind domain.SubjectKind, reviewID, callerID string) (*domain.Review, error) {
	r, err := repo.GetReview(ctx, s.DB, kind, reviewID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	if r.Status == domain.StatusApproved {
		return r, nil
	}
	if owner, err := s.Ledger.IsOwner(ctx, reviewID, callerID); err != nil {
		return nil, err
	} else if !owner {
		return nil, ErrReviewNotFound
	}
	return r, nil
}

// Vote records a helpful/not-helpful vote on an approved review and refreshes
// the review's counters from the vote rows.
func (s *ReviewService) Vote(ctx context.Context, kind domain.SubjectKind, reviewID, voterID string, helpful bool) error {
	r, err := repo.GetReview(ctx, s.DB, kind, reviewID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrReviewNotFound
		}
		return err
	}
	if r.Status != domain.StatusApproved {
		return ErrReviewNotFound
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateVote(ctx, tx, reviewID, voterID, helpful); err != nil {
			if repo.IsUniqueViolation(err) {
				return ErrDuplicateVote
			}
			return err
		}
		up, down, err := repo.VoteCounts(ctx, tx, reviewID)
		if err != nil {
			return err
		}
		return repo.UpdateReviewFields(ctx, tx, reviewID, map[string]any{
			"helpful_count":     up,
			"not_helpful_count": down,
		})
	})
}

// owned loads a review and checks callerID is its author.
func (s *ReviewService) owned(ctx context.Context, kind domain.SubjectKind, reviewID, callerID string) (*domain.Review, error) {
	r, err := repo.GetReview(ctx, s.DB, kind, reviewID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	owner, err := s.Ledger.IsOwner(ctx, reviewID, callerID)
	if err != nil {
		return nil, fmt.Errorf("check owner: %w", err)
	}
	if !owner {
		return nil, ErrForbidden
	}
	return r, nil
}

func (s *ReviewService) recompute(ctx context.Context, kind domain.SubjectKind, subjectID string) {
	if s.Aggregator == nil {
		return
	}
	if err := s.Aggregator.Recompute(ctx, kind, subjectID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("subject_id", subjectID).Msg("aggregate recompute failed")
	}
}

func (s *ReviewService) wake() {
	if s.Wake != nil {
		s.Wake()
	}
}

func validRating(n int) bool { return n >= 1 && n <= 5 }

func validateInput(in ReviewInput) error {
	for _, r := range []int{in.OverallRating, in.TeachingRating, in.DifficultyRating, in.SupportRating} {
		if !validRating(r) {
			return ErrInvalidRating
		}
	}
	if utf8.RuneCountInString(in.ReviewText) > MaxReviewTextRunes {
		return ErrTextTooLong
	}
	return nil
}

// patchFields validates patch and returns the columns that actually change.
func patchFields(kind domain.SubjectKind, cur *domain.Review, p ReviewPatch) (map[string]any, bool, error) {
	fields := map[string]any{}
	ratings := []struct {
		col string
		v   *int
		old int
	}{
		{"overall_rating", p.OverallRating, cur.OverallRating},
		{"teaching_rating", p.TeachingRating, cur.TeachingRating},
		{"difficulty_rating", p.DifficultyRating, cur.DifficultyRating},
		{"support_rating", p.SupportRating, cur.SupportRating},
	}
	for _, r := range ratings {
		if r.v == nil {
			continue
		}
		if !validRating(*r.v) {
			return nil, false, ErrInvalidRating
		}
		if *r.v != r.old {
			fields[r.col] = *r.v
		}
	}

	textChanged := false
	if p.ReviewText != nil {
		t := strings.TrimSpace(*p.ReviewText)
		if utf8.RuneCountInString(t) > MaxReviewTextRunes {
			return nil, false, ErrTextTooLong
		}
		if t != cur.ReviewText {
			fields["review_text"] = t
			textChanged = true
		}
	}
	strs := []struct {
		col string
		v   *string
		old string
	}{
		{"course_code", p.CourseCode, cur.CourseCode},
		{"semester", p.Semester, cur.Semester},
	}
	if kind == domain.KindProfessor {
		strs = append(strs, struct {
			col string
			v   *string
			old string
		}{"display_name", p.DisplayName, cur.DisplayName})
	}
	for _, f := range strs {
		if f.v == nil {
			continue
		}
		if v := strings.TrimSpace(*f.v); v != f.old {
			fields[f.col] = v
		}
	}
	return fields, textChanged, nil
}

// normalizePage applies the default page (1) and page size (20, max 100).
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
