package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-review-backend/internal/config"
	"github.com/tbourn/go-review-backend/internal/content"
	"github.com/tbourn/go-review-backend/internal/domain"
	"github.com/tbourn/go-review-backend/internal/repo"
)

type call struct {
	reviewID, text, author string
}

type fakeProcessor struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeProcessor) Process(_ context.Context, _ domain.SubjectKind, reviewID, text, authorID string) (content.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{reviewID, text, authorID})
	return content.CleanAnalysis(text), f.err
}

func (f *fakeProcessor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

func newWorker(t *testing.T, p Processor) (*Worker, *time.Time) {
	t.Helper()
	now := time.Now().UTC().Add(time.Second)
	w := New(newTestDB(t), p, config.ModerationConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		MaxAttempts:  2,
		JobLease:     time.Minute,
	})
	w.Now = func() time.Time { return now }
	return w, &now
}

func seed(t *testing.T, db *gorm.DB, author string) (*domain.Review, *domain.AnalysisJob) {
	t.Helper()
	ctx := context.Background()
	r := &domain.Review{
		SubjectType: domain.KindProfessor, SubjectID: "p1",
		OverallRating: 4, TeachingRating: 4, DifficultyRating: 3, SupportRating: 4,
		ReviewText: "Helpful office hours.", Status: domain.StatusPending,
	}
	require.NoError(t, repo.CreateReview(ctx, db, r))
	if author != "" {
		require.NoError(t, repo.CreateMapping(ctx, db, &domain.AuthorMapping{
			ReviewID: r.ID, AuthorID: author, SubjectType: r.SubjectType, SubjectID: r.SubjectID,
		}))
	}
	j, err := repo.EnqueueAnalysisJob(ctx, db, domain.KindProfessor, r.ID)
	require.NoError(t, err)
	return r, j
}

func job(t *testing.T, db *gorm.DB, id string) domain.AnalysisJob {
	t.Helper()
	var j domain.AnalysisJob
	require.NoError(t, db.First(&j, "id = ?", id).Error)
	return j
}

func TestRunOnce_ProcessesWithAuthor(t *testing.T) {
	p := &fakeProcessor{}
	w, _ := newWorker(t, p)
	r, j := seed(t, w.DB, "author-1")

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, p.calls, 1)
	assert.Equal(t, call{r.ID, "Helpful office hours.", "author-1"}, p.calls[0])
	assert.Equal(t, domain.JobDone, job(t, w.DB, j.ID).Status)
}

func TestRunOnce_MissingMappingPassesEmptyAuthor(t *testing.T) {
	p := &fakeProcessor{}
	w, _ := newWorker(t, p)
	_, j := seed(t, w.DB, "")

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, p.calls, 1)
	assert.Empty(t, p.calls[0].author)
	assert.Equal(t, domain.JobDone, job(t, w.DB, j.ID).Status)
}

func TestRunOnce_DeletedReviewCompletesWithoutProcessing(t *testing.T) {
	p := &fakeProcessor{}
	w, _ := newWorker(t, p)
	r, j := seed(t, w.DB, "author-1")
	require.NoError(t, repo.SoftDeleteReview(context.Background(), w.DB, r.ID))

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, p.count())
	assert.Equal(t, domain.JobDone, job(t, w.DB, j.ID).Status)
}

func TestRunOnce_RetryThenFail(t *testing.T) {
	p := &fakeProcessor{err: errors.New("analysis failed")}
	w, now := newWorker(t, p)
	_, j := seed(t, w.DB, "author-1")

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	got := job(t, w.DB, j.ID)
	assert.Equal(t, domain.JobPending, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "analysis failed", got.LastError)
	assert.True(t, got.AvailableAt.After(*now))

	// Not due yet.
	n, _ := w.RunOnce(context.Background())
	assert.Zero(t, n)

	*now = now.Add(time.Hour)
	_, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	got = job(t, w.DB, j.ID)
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, 2, p.count())
}

func TestRunOnce_RequeuesExpiredLease(t *testing.T) {
	p := &fakeProcessor{}
	w, now := newWorker(t, p)
	_, j := seed(t, w.DB, "author-1")

	// Simulate a worker that claimed the job and died.
	claimed, err := repo.ClaimDueJobs(context.Background(), w.DB, *now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	n, _ := w.RunOnce(context.Background())
	assert.Zero(t, n, "lease still valid")

	*now = now.Add(2 * time.Minute)
	n, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.JobDone, job(t, w.DB, j.ID).Status)
}

func TestRunOnce_PurgesExpiredIdempotency(t *testing.T) {
	w, _ := newWorker(t, &fakeProcessor{})
	ctx := context.Background()
	_, err := repo.CreateIdempotency(ctx, w.DB, "u1", "review:create:professor", "k1", "r1", 201, -time.Minute)
	require.NoError(t, err)

	_, err = w.RunOnce(ctx)
	require.NoError(t, err)
	var n int64
	w.DB.Model(&domain.Idempotency{}).Count(&n)
	assert.Zero(t, n)
}

func TestRun_NotifyWakesAndStops(t *testing.T) {
	p := &fakeProcessor{}
	w, _ := newWorker(t, p)
	w.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	seed(t, w.DB, "author-1")
	w.Notify()
	w.Notify() // never blocks
	assert.Eventually(t, func() bool { return p.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
