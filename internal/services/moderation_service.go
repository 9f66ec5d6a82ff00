// Package services – ModerationService
//
// ModerationService implements the moderator workflow: the flag queue, flag
// resolution, review status transitions and the audit log. Every status
// change is attributed to a moderator, requires a reason and appends one
// moderation_logs row. Audit writes never fail the action they describe.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/metrics"
	"github.com/tbourn/go-review-backend/internal/repo"
)

// Placeholder used for lookups that found nothing.
const unknown = "Unknown"

// Flag resolution actions.
const (
	FlagActionApprove = "approve"
	FlagActionDismiss = "dismiss"
)

// reviewActions maps a moderator action to its target status.
var reviewActions = map[string]domain.ReviewStatus{
	"approve": domain.StatusApproved,
	"remove":  domain.StatusRemoved,
	"reject":  domain.StatusRejected,
	"flag":    domain.StatusFlagged,
	"pending": domain.StatusPending,
}

// transitions lists the allowed review status changes. Removed and rejected
// are terminal.
var transitions = map[domain.ReviewStatus][]domain.ReviewStatus{
	domain.StatusPending:  {domain.StatusApproved, domain.StatusRemoved, domain.StatusFlagged, domain.StatusRejected},
	domain.StatusFlagged:  {domain.StatusApproved, domain.StatusRemoved},
	domain.StatusApproved: {domain.StatusFlagged, domain.StatusPending, domain.StatusRemoved},
}

// CanTransition reports whether a review may move from one status to another.
func CanTransition(from, to domain.ReviewStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ReviewRef is the part of a review shown in the flag queue.
type ReviewRef struct {
	ID            string `json:"id"`
	SubjectID     string `json:"subject_id"`
	ReviewText    string `json:"review_text"`
	OverallRating int    `json:"overall_rating"`
	Status        string `json:"status"`
}

// SubjectRef names the professor or college a review is about.
type SubjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FlaggedItem is one entry of the flag queue.
type FlaggedItem struct {
	Flag    domain.Flag `json:"flag"`
	Review  ReviewRef   `json:"review"`
	Subject SubjectRef  `json:"subject"`
}

// ReviewWithFlags is a review together with all its flags.
type ReviewWithFlags struct {
	domain.Review
	Flags []domain.Flag `json:"flags"`
}

// ModerationStats are the dashboard counters of one subject kind.
type ModerationStats struct {
	PendingFlags    int64 `json:"pending_flags"`
	TotalFlags      int64 `json:"total_flags"`
	FlaggedReviews  int64 `json:"flagged_reviews"`
	TotalReviews    int64 `json:"total_reviews"`
	PendingAnalysis int64 `json:"pending_analysis"`
}

// ModerationService implements the moderator use-cases.
type ModerationService struct {
	DB         *gorm.DB
	Aggregator *Aggregator
}

func modTracer() trace.Tracer { return otel.Tracer("services/ModerationService") }

// ListFlagged returns flags of kind, optionally filtered by status, with
// their review and subject. Reviews and subjects are fetched by separate
// queries; anything missing is reported as "Unknown" instead of failing the
// whole page.
func (s *ModerationService) ListFlagged(ctx context.Context, kind domain.SubjectKind, status domain.FlagStatus, limit, offset int) ([]FlaggedItem, error) {
	ctx, span := modTracer().Start(ctx, "ListFlagged",
		trace.WithAttributes(attribute.String("subject.kind", string(kind)), attribute.Int("limit", limit), attribute.Int("offset", offset)),
	)
	defer span.End()

	switch status {
	case "", domain.FlagPending, domain.FlagReviewed, domain.FlagDismissed:
	default:
		return nil, ErrInvalidStatus
	}
	flags, err := repo.ListFlagsPage(ctx, s.DB, kind, status, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]FlaggedItem, 0, len(flags))
	if len(flags) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(flags))
	for _, f := range flags {
		ids = append(ids, f.ReviewID)
	}
	reviews := map[string]domain.Review{}
	if rs, err := repo.ListReviewsByIDs(ctx, s.DB, kind, ids); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("flag queue: review lookup failed")
	} else {
		for _, r := range rs {
			reviews[r.ID] = r
		}
	}
	subjectIDs := make([]string, 0, len(reviews))
	for _, r := range reviews {
		subjectIDs = append(subjectIDs, r.SubjectID)
	}
	names, err := repo.SubjectNames(ctx, s.DB, kind, subjectIDs)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("flag queue: subject lookup failed")
		names = map[string]string{}
	}

	for _, f := range flags {
		item := FlaggedItem{
			Flag:    f,
			Review:  ReviewRef{ID: f.ReviewID, ReviewText: unknown, Status: unknown},
			Subject: SubjectRef{Name: unknown},
		}
		if r, ok := reviews[f.ReviewID]; ok {
			item.Review = ReviewRef{
				ID:            r.ID,
				SubjectID:     r.SubjectID,
				ReviewText:    r.ReviewText,
				OverallRating: r.OverallRating,
				Status:        string(r.Status),
			}
			item.Subject.ID = r.SubjectID
			if n, ok := names[r.SubjectID]; ok {
				item.Subject.Name = n
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// ResolveFlag closes a pending flag. "approve" marks it reviewed and flags
// its review (is_flagged, status flagged when the state machine allows it);
// "dismiss" only marks the flag dismissed. A flag that is not pending yields
// ErrFlagAlreadyResolved and nothing changes.
func (s *ModerationService) ResolveFlag(ctx context.Context, kind domain.SubjectKind, flagID, moderatorID, action, notes string) (*domain.Flag, error) {
	ctx, span := modTracer().Start(ctx, "ResolveFlag",
		trace.WithAttributes(attribute.String("flag.id", flagID), attribute.String("action", action)),
	)
	defer span.End()

	var to domain.FlagStatus
	switch action {
	case FlagActionApprove:
		to = domain.FlagReviewed
	case FlagActionDismiss:
		to = domain.FlagDismissed
	default:
		return nil, ErrInvalidAction
	}
	notes = strings.TrimSpace(notes)

	f, err := repo.GetFlag(ctx, s.DB, kind, flagID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrFlagNotFound
		}
		return nil, err
	}
	if f.Status != domain.FlagPending {
		return nil, ErrFlagAlreadyResolved
	}

	var review *domain.Review
	var wasApproved bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.ResolveFlag(ctx, tx, flagID, to, moderatorID, notes)
		if err != nil {
			return err
		}
		if !ok {
			return ErrFlagAlreadyResolved
		}
		if to != domain.FlagReviewed {
			return nil
		}
		r, err := repo.GetReview(ctx, tx, kind, f.ReviewID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		fields := map[string]any{"is_flagged": true}
		if CanTransition(r.Status, domain.StatusFlagged) {
			fields["status"] = domain.StatusFlagged
		}
		review, wasApproved = r, r.Status == domain.StatusApproved
		return repo.UpdateReviewFields(ctx, tx, r.ID, fields)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.ModerationActions.WithLabelValues(string(kind), "flag_"+action).Inc()
	s.audit(ctx, &domain.ModerationLog{
		ModeratorID: moderatorID,
		Action:      "flag_" + action,
		TargetType:  "flag",
		TargetID:    flagID,
		Reason:      notes,
		Details:     fmt.Sprintf("review=%s type=%s", f.ReviewID, f.FlagType),
	})
	if review != nil {
		s.audit(ctx, &domain.ModerationLog{
			ModeratorID: moderatorID,
			Action:      "review_flagged",
			TargetType:  string(kind) + "_review",
			TargetID:    review.ID,
			Reason:      notes,
			Details:     fmt.Sprintf("cascade from flag %s (was %s)", flagID, review.Status),
		})
		if wasApproved {
			s.recompute(ctx, kind, review.SubjectID)
		}
	}
	return repo.GetFlag(ctx, s.DB, kind, flagID)
}

// ListReviewsByStatus returns reviews in status, oldest first, each with its
// flags.
func (s *ModerationService) ListReviewsByStatus(ctx context.Context, kind domain.SubjectKind, status domain.ReviewStatus, limit, offset int) ([]ReviewWithFlags, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	reviews, err := repo.ListReviewsByStatus(ctx, s.DB, kind, status, offset, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.ID)
	}
	flags, err := repo.FlagsForReviews(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ReviewWithFlags, 0, len(reviews))
	for _, r := range reviews {
		fs := flags[r.ID]
		if fs == nil {
			fs = []domain.Flag{}
		}
		out = append(out, ReviewWithFlags{Review: r, Flags: fs})
	}
	return out, nil
}

// ReviewAction moves a review to the status named by action (approve, remove,
// reject, flag, pending). The change is conditional on the status read, so a
// concurrent decision yields ErrInvalidTransition rather than a lost update.
func (s *ModerationService) ReviewAction(ctx context.Context, kind domain.SubjectKind, reviewID, moderatorID, action, reason string) (*domain.Review, error) {
	ctx, span := modTracer().Start(ctx, "ReviewAction",
		trace.WithAttributes(attribute.String("review.id", reviewID), attribute.String("action", action)),
	)
	defer span.End()

	to, ok := reviewActions[action]
	if !ok {
		return nil, ErrInvalidAction
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	r, err := repo.GetReview(ctx, s.DB, kind, reviewID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	if !CanTransition(r.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changed, err := repo.SetReviewStatus(ctx, tx, reviewID, to, r.Status)
		if err != nil {
			return err
		}
		if !changed {
			return ErrInvalidTransition
		}
		switch to {
		case domain.StatusFlagged:
			return repo.UpdateReviewFields(ctx, tx, reviewID, map[string]any{"is_flagged": true})
		case domain.StatusApproved:
			return repo.UpdateReviewFields(ctx, tx, reviewID, map[string]any{"is_flagged": false})
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.ModerationActions.WithLabelValues(string(kind), "review_"+action).Inc()
	s.audit(ctx, &domain.ModerationLog{
		ModeratorID: moderatorID,
		Action:      "review_" + action,
		TargetType:  string(kind) + "_review",
		TargetID:    reviewID,
		Reason:      reason,
		Details:     fmt.Sprintf("%s -> %s", r.Status, to),
	})
	s.recompute(ctx, kind, r.SubjectID)
	return repo.GetReview(ctx, s.DB, kind, reviewID)
}

// Stats counts flags and reviews of kind with independent queries.
func (s *ModerationService) Stats(ctx context.Context, kind domain.SubjectKind) (ModerationStats, error) {
	var st ModerationStats
	var err error
	if st.PendingFlags, err = repo.CountFlags(ctx, s.DB, kind, domain.FlagPending); err != nil {
		return st, err
	}
	if st.TotalFlags, err = repo.CountFlags(ctx, s.DB, kind, ""); err != nil {
		return st, err
	}
	if st.FlaggedReviews, err = repo.CountReviews(ctx, s.DB, kind, true); err != nil {
		return st, err
	}
	if st.TotalReviews, err = repo.CountReviews(ctx, s.DB, kind, false); err != nil {
		return st, err
	}
	if st.PendingAnalysis, err = repo.CountJobs(ctx, s.DB, domain.JobPending); err != nil {
		return st, err
	}
	return st, nil
}

// Logs reads the audit log, newest first, optionally for one target.
func (s *ModerationService) Logs(ctx context.Context, targetID string, limit, offset int) ([]domain.ModerationLog, error) {
	return repo.ListModerationLogs(ctx, s.DB, targetID, offset, limit)
}

func (s *ModerationService) audit(ctx context.Context, l *domain.ModerationLog) {
	if err := repo.InsertModerationLog(ctx, s.DB, l); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("action", l.Action).Str("target_id", l.TargetID).Msg("moderation log write failed")
	}
}

func (s *ModerationService) recompute(ctx context.Context, kind domain.SubjectKind, subjectID string) {
	if s.Aggregator == nil {
		return
	}
	if err := s.Aggregator.Recompute(ctx, kind, subjectID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("subject_id", subjectID).Msg("aggregate recompute failed")
	}
}
