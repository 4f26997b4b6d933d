package publish_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"versemill/internal/config"
	"versemill/internal/logging"
	"versemill/internal/publish"
	"versemill/internal/queue"
	"versemill/internal/testsupport"
)

type fakePublisher struct {
	results map[string]publish.Result
	errs    map[string]error
	order   []string
}

func (f *fakePublisher) Publish(ctx context.Context, job *queue.Job) (publish.Result, error) {
	f.order = append(f.order, job.WorkUnitID)
	if err, ok := f.errs[job.WorkUnitID]; ok {
		return publish.Result{}, err
	}
	if result, ok := f.results[job.WorkUnitID]; ok {
		return result, nil
	}
	return publish.Result{ID: "vid-" + job.WorkUnitID, URL: "https://example.com/" + job.WorkUnitID}, nil
}

func seedReadyJob(t *testing.T, store *queue.Store, verse int) *queue.Job {
	t.Helper()
	ctx := context.Background()
	job := testsupport.NewJob(t, store, testsupport.Unit("John", 1, verse, "In the beginning was the Word."))
	if err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := store.MarkReady(ctx, job.ID); err != nil {
		t.Fatalf("MarkReady failed: %v", err)
	}
	return job
}

func publishConfig(t *testing.T, quota, cost int64) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Publish.Enabled = true
	cfg.Publish.DailyQuotaUnits = quota
	cfg.Publish.UploadCost = cost
	return cfg
}

func TestPublishReadyUploadsOldestFirstWithinBudget(t *testing.T) {
	cfg := publishConfig(t, 3200, 1600)
	store := testsupport.MustOpenStore(t, cfg)

	first := seedReadyJob(t, store, 1)
	second := seedReadyJob(t, store, 2)
	seedReadyJob(t, store, 3)

	publisher := &fakePublisher{}
	coordinator := publish.NewCoordinator(store, publisher, cfg, logging.NewNop())

	ctx := context.Background()
	summary, err := coordinator.PublishReady(ctx, 0)
	if err != nil {
		t.Fatalf("PublishReady failed: %v", err)
	}
	if summary.Uploaded != 2 || summary.SkippedBudget != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if len(publisher.order) != 2 || publisher.order[0] != first.WorkUnitID || publisher.order[1] != second.WorkUnitID {
		t.Fatalf("expected oldest-first upload order, got %v", publisher.order)
	}

	fetched, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusUploaded {
		t.Fatalf("expected uploaded status, got %s", fetched.Status)
	}
	if fetched.PublishedID == "" || fetched.PublishedURL == "" {
		t.Fatalf("published identity not recorded: %#v", fetched)
	}

	// The recorded uploads consumed today's budget: a second pass has
	// nothing left to spend.
	summary, err = coordinator.PublishReady(ctx, 0)
	if err != nil {
		t.Fatalf("PublishReady failed: %v", err)
	}
	if summary.Budget != 0 || summary.Uploaded != 0 {
		t.Fatalf("expected exhausted budget, got %#v", summary)
	}
}

func TestPublishFailureKeepsJobReady(t *testing.T) {
	cfg := publishConfig(t, 16000, 1600)
	store := testsupport.MustOpenStore(t, cfg)
	job := seedReadyJob(t, store, 1)

	publisher := &fakePublisher{
		errs: map[string]error{
			job.WorkUnitID: &publish.Error{Op: "upload", Retryable: true, Err: fmt.Errorf("503")},
		},
	}
	coordinator := publish.NewCoordinator(store, publisher, cfg, logging.NewNop())

	ctx := context.Background()
	summary, err := coordinator.PublishReady(ctx, 0)
	if err != nil {
		t.Fatalf("PublishReady failed: %v", err)
	}
	if summary.Failed != 1 || summary.Uploaded != 0 {
		t.Fatalf("unexpected summary %#v", summary)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusReady {
		t.Fatalf("failed upload must keep job ready, got %s", fetched.Status)
	}
	if fetched.RetryCount != 0 {
		t.Fatalf("publish failure must not consume a pipeline attempt, got %d", fetched.RetryCount)
	}
	if fetched.ErrorMessage == "" {
		t.Fatal("expected publish error recorded on the job")
	}
}

func TestPublishPermanentRejectionStopsReselection(t *testing.T) {
	cfg := publishConfig(t, 16000, 1600)
	store := testsupport.MustOpenStore(t, cfg)
	job := seedReadyJob(t, store, 1)

	publisher := &fakePublisher{
		errs: map[string]error{
			job.WorkUnitID: &publish.Error{Op: "upload", Retryable: false, Err: fmt.Errorf("invalid metadata")},
		},
	}
	coordinator := publish.NewCoordinator(store, publisher, cfg, logging.NewNop())

	ctx := context.Background()
	summary, err := coordinator.PublishReady(ctx, 0)
	if err != nil {
		t.Fatalf("PublishReady failed: %v", err)
	}
	if summary.Rejected != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %#v", summary)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusFailed {
		t.Fatalf("permanent rejection must fail the job, got %s", fetched.Status)
	}
	if fetched.RetryCount != cfg.Retry.MaxAttempts {
		t.Fatalf("rejection must exhaust the attempt ceiling, got %d", fetched.RetryCount)
	}
	if fetched.ErrorMessage == "" {
		t.Fatal("expected rejection reason recorded")
	}

	// The record is invisible to both the publish and retry paths now.
	summary, err = coordinator.PublishReady(ctx, 0)
	if err != nil {
		t.Fatalf("PublishReady failed: %v", err)
	}
	if summary.Considered != 0 {
		t.Fatalf("rejected job must not be re-selected, got %#v", summary)
	}
	retryable, err := store.FailedForRetry(ctx, cfg.Retry.MaxAttempts, 0)
	if err != nil {
		t.Fatalf("FailedForRetry failed: %v", err)
	}
	if len(retryable) != 0 {
		t.Fatalf("rejected job must not be retry-eligible, got %d jobs", len(retryable))
	}
}

func TestPublishOneChecksStatusAndBudget(t *testing.T) {
	cfg := publishConfig(t, 1600, 1600)
	store := testsupport.MustOpenStore(t, cfg)
	first := seedReadyJob(t, store, 1)
	second := seedReadyJob(t, store, 2)

	coordinator := publish.NewCoordinator(store, &fakePublisher{}, cfg, logging.NewNop())

	ctx := context.Background()
	if _, err := coordinator.PublishOne(ctx, 9999); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown job, got %v", err)
	}

	result, err := coordinator.PublishOne(ctx, first.ID)
	if err != nil {
		t.Fatalf("PublishOne failed: %v", err)
	}
	if result.URL == "" {
		t.Fatal("expected published URL")
	}

	// Uploading the same job again is a status error, not a re-upload.
	if _, err := coordinator.PublishOne(ctx, first.ID); err == nil {
		t.Fatal("expected uploaded job to be rejected")
	}

	// The single-unit budget is spent.
	if _, err := coordinator.PublishOne(ctx, second.ID); err == nil {
		t.Fatal("expected exhausted budget to be rejected")
	}
}

func TestPublishReadyHonorsLimit(t *testing.T) {
	cfg := publishConfig(t, 160000, 1600)
	store := testsupport.MustOpenStore(t, cfg)
	for verse := 1; verse <= 3; verse++ {
		seedReadyJob(t, store, verse)
	}

	coordinator := publish.NewCoordinator(store, &fakePublisher{}, cfg, logging.NewNop())
	summary, err := coordinator.PublishReady(context.Background(), 2)
	if err != nil {
		t.Fatalf("PublishReady failed: %v", err)
	}
	if summary.Considered != 2 || summary.Uploaded != 2 {
		t.Fatalf("expected limit respected, got %#v", summary)
	}
}
