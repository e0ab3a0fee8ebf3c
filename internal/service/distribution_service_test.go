package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/repurposely/api/internal/model"
	"github.com/repurposely/api/internal/store"
)

type distFixture struct {
	content *ContentService
	dist    *DistributionService
	enq     *fakeEnqueuer
}

func newDistFixture() *distFixture {
	enq := &fakeEnqueuer{}
	jobs := store.NewMemoryJobStore()
	attempts := store.NewMemoryAttemptStore()
	return &distFixture{
		content: NewContentService(jobs, enq),
		dist:    NewDistributionService(jobs, attempts, enq),
		enq:     enq,
	}
}

// completedJob drives a fresh job to completed and returns its id.
func (f *distFixture) completedJob(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	resp, err := f.content.Submit(ctx, &model.SubmitRequest{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	f.content.MarkProcessing(ctx, resp.JobID)
	if err := f.content.Complete(ctx, resp.JobID, &model.ArtifactBundle{GeneratedAt: time.Now()}); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	return resp.JobID
}

func TestDistribute_CreatesQueuedAttempts(t *testing.T) {
	f := newDistFixture()
	ctx := context.Background()
	jobID := f.completedJob(t)
	before := f.enq.count()

	resp, err := f.dist.Distribute(ctx, jobID, []model.TargetKind{model.TargetTwitter, model.TargetEmail})
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if len(resp.AttemptIDs) != 2 {
		t.Fatalf("expected 2 attempt ids, got %d", len(resp.AttemptIDs))
	}
	if f.enq.count()-before != 2 {
		t.Errorf("expected 2 delivery tasks, got %d", f.enq.count()-before)
	}

	list, err := f.dist.ListAttempts(ctx, jobID, nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(list.Attempts))
	}
	for _, a := range list.Attempts {
		if a.Status != model.AttemptStatusQueued {
			t.Errorf("expected queued, got %s", a.Status)
		}
	}
	if list.Resolved {
		t.Error("queued attempts must not report resolved")
	}
}

func TestDistribute_JobNotFound(t *testing.T) {
	f := newDistFixture()

	_, err := f.dist.Distribute(context.Background(), "missing", []model.TargetKind{model.TargetTwitter})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDistribute_RequiresCompletedJob(t *testing.T) {
	f := newDistFixture()
	ctx := context.Background()
	resp, _ := f.content.Submit(ctx, &model.SubmitRequest{Title: "t", Content: "c"})

	_, err := f.dist.Distribute(ctx, resp.JobID, []model.TargetKind{model.TargetTwitter})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for pending job, got %v", err)
	}

	// No attempts should be recorded for the rejected request.
	list, _ := f.dist.ListAttempts(ctx, resp.JobID, nil)
	if len(list.Attempts) != 0 {
		t.Errorf("rejected distribute left %d attempts", len(list.Attempts))
	}
}

func TestDistribute_RejectsUnknownTarget(t *testing.T) {
	f := newDistFixture()
	jobID := f.completedJob(t)

	_, err := f.dist.Distribute(context.Background(), jobID, []model.TargetKind{"myspace"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestDistribute_RejectsEmptyTargets(t *testing.T) {
	f := newDistFixture()
	jobID := f.completedJob(t)

	_, err := f.dist.Distribute(context.Background(), jobID, nil)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestDistribute_DuplicateKindsGetSeparateAttempts(t *testing.T) {
	f := newDistFixture()
	ctx := context.Background()
	jobID := f.completedJob(t)

	resp, err := f.dist.Distribute(ctx, jobID, []model.TargetKind{model.TargetTwitter, model.TargetTwitter})
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if len(resp.AttemptIDs) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(resp.AttemptIDs))
	}
	if resp.AttemptIDs[0] == resp.AttemptIDs[1] {
		t.Error("duplicate kinds must not share an attempt id")
	}
}

func TestDistribute_RepeatAppendsToLog(t *testing.T) {
	f := newDistFixture()
	ctx := context.Background()
	jobID := f.completedJob(t)

	f.dist.Distribute(ctx, jobID, []model.TargetKind{model.TargetTwitter})
	f.dist.Distribute(ctx, jobID, []model.TargetKind{model.TargetTwitter})

	list, _ := f.dist.ListAttempts(ctx, jobID, nil)
	if len(list.Attempts) != 2 {
		t.Errorf("re-distribution must append, got %d attempts", len(list.Attempts))
	}
}

func TestListAttempts_JobNotFound(t *testing.T) {
	f := newDistFixture()

	_, err := f.dist.ListAttempts(context.Background(), "missing", nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAttempts_FilterByKind(t *testing.T) {
	f := newDistFixture()
	ctx := context.Background()
	jobID := f.completedJob(t)
	f.dist.Distribute(ctx, jobID, []model.TargetKind{model.TargetTwitter, model.TargetEmail})

	list, err := f.dist.ListAttempts(ctx, jobID, []model.TargetKind{model.TargetEmail})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list.Attempts) != 1 || list.Attempts[0].TargetKind != model.TargetEmail {
		t.Errorf("filter returned wrong attempts: %+v", list.Attempts)
	}
}

func TestAttemptLifecycle(t *testing.T) {
	f := newDistFixture()
	ctx := context.Background()
	jobID := f.completedJob(t)
	resp, _ := f.dist.Distribute(ctx, jobID, []model.TargetKind{model.TargetLinkedIn})
	attemptID := resp.AttemptIDs[0]

	if err := f.dist.MarkPosting(ctx, attemptID); err != nil {
		t.Fatalf("mark posting failed: %v", err)
	}
	if err := f.dist.MarkPosting(ctx, attemptID); !errors.Is(err, ErrAlreadyDispatched) {
		t.Errorf("expected ErrAlreadyDispatched on duplicate posting, got %v", err)
	}

	if err := f.dist.MarkPosted(ctx, attemptID, "post-1", "https://example.com/post-1"); err != nil {
		t.Fatalf("mark posted failed: %v", err)
	}

	attempt, _ := f.dist.GetAttempt(ctx, attemptID)
	if attempt.Status != model.AttemptStatusPosted {
		t.Errorf("expected posted, got %s", attempt.Status)
	}
	if attempt.PostID != "post-1" || attempt.PostURL == "" {
		t.Errorf("receipt not recorded: %+v", attempt)
	}
	if attempt.ResolvedAt == nil {
		t.Error("expected resolvedAt to be set")
	}

	if err := f.dist.MarkFailed(ctx, attemptID, "late"); !errors.Is(err, ErrTerminal) {
		t.Errorf("expected ErrTerminal on resolving twice, got %v", err)
	}
}

func TestAwaitResolution_ReturnsWhenAllTerminal(t *testing.T) {
	f := newDistFixture()
	ctx := context.Background()
	jobID := f.completedJob(t)
	resp, _ := f.dist.Distribute(ctx, jobID, []model.TargetKind{model.TargetTwitter, model.TargetEmail})

	go func() {
		time.Sleep(300 * time.Millisecond)
		for _, id := range resp.AttemptIDs {
			f.dist.MarkPosting(ctx, id)
			f.dist.MarkPosted(ctx, id, "p", "u")
		}
	}()

	list, err := f.dist.AwaitResolution(ctx, jobID, nil, 5*time.Second)
	if err != nil {
		t.Fatalf("await failed: %v", err)
	}
	if !list.Resolved {
		t.Error("expected resolved attempt set")
	}
}

func TestAwaitResolution_BoundedWait(t *testing.T) {
	f := newDistFixture()
	ctx := context.Background()
	jobID := f.completedJob(t)
	f.dist.Distribute(ctx, jobID, []model.TargetKind{model.TargetTwitter})

	start := time.Now()
	list, err := f.dist.AwaitResolution(ctx, jobID, nil, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("await failed: %v", err)
	}
	if list.Resolved {
		t.Error("unresolved attempts reported resolved")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("bounded wait overran: %v", elapsed)
	}
}

func TestOverview_AggregatesOutcomes(t *testing.T) {
	f := newDistFixture()
	ctx := context.Background()
	jobID := f.completedJob(t)
	resp, _ := f.dist.Distribute(ctx, jobID, []model.TargetKind{model.TargetTwitter, model.TargetTwitter})

	f.dist.MarkPosting(ctx, resp.AttemptIDs[0])
	f.dist.MarkPosted(ctx, resp.AttemptIDs[0], "p", "u")
	f.dist.MarkPosting(ctx, resp.AttemptIDs[1])
	f.dist.MarkFailed(ctx, resp.AttemptIDs[1], "rejected")

	overview, err := f.dist.Overview(ctx)
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.TotalJobs != 1 {
		t.Errorf("expected 1 job, got %d", overview.TotalJobs)
	}
	tw := overview.PlatformStats[model.TargetTwitter]
	if tw.Total != 2 || tw.Successful != 1 || tw.Failed != 1 {
		t.Errorf("unexpected stats: %+v", tw)
	}
}

func TestRecentPosts_ValidatesTarget(t *testing.T) {
	f := newDistFixture()

	_, err := f.dist.RecentPosts(context.Background(), "myspace", 10)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
