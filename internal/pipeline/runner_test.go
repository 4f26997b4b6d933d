package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"versemill/internal/logging"
	"versemill/internal/pipeline"
	"versemill/internal/queue"
	"versemill/internal/testsupport"
)

type fakeExecutor struct {
	name  string
	asset queue.AssetKind
	path  string
	err   error
	calls int
}

func (f *fakeExecutor) Name() string { return f.name }

func (f *fakeExecutor) Asset() queue.AssetKind { return f.asset }

func (f *fakeExecutor) Execute(ctx context.Context, job *queue.Job) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

func newProcessingJob(t *testing.T, store *queue.Store) *queue.Job {
	t.Helper()
	job := testsupport.NewJob(t, store, testsupport.Unit("John", 11, 35, "Jesus wept."))
	if err := store.MarkProcessing(context.Background(), job.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	job.Status = queue.StatusProcessing
	return job
}

func TestRunnerPersistsAssetsAndMarksReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := newProcessingJob(t, store)

	executors := []pipeline.Executor{
		&fakeExecutor{name: "background", asset: queue.AssetBackground, path: "/tmp/bg.mp4"},
		&fakeExecutor{name: "speech", asset: queue.AssetAudio, path: "/tmp/audio.wav"},
		&fakeExecutor{name: "composition", asset: queue.AssetFinal, path: "/tmp/final.mp4"},
	}
	runner := pipeline.NewRunner(store, executors, logging.NewNop())

	ctx := context.Background()
	if err := runner.Run(ctx, job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusReady {
		t.Fatalf("expected ready status, got %s", fetched.Status)
	}
	if fetched.BackgroundPath != "/tmp/bg.mp4" || fetched.AudioPath != "/tmp/audio.wav" || fetched.FinalPath != "/tmp/final.mp4" {
		t.Fatalf("asset paths not persisted: %#v", fetched)
	}

	counters, err := store.CountersFor(ctx, fetched.UpdatedAt)
	if err != nil {
		t.Fatalf("CountersFor failed: %v", err)
	}
	if counters.Generated != 1 {
		t.Fatalf("expected generated counter bumped, got %d", counters.Generated)
	}
}

func TestRunnerStopsAtFirstFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := newProcessingJob(t, store)

	boom := fmt.Errorf("tts crashed")
	second := &fakeExecutor{name: "speech", asset: queue.AssetAudio, err: boom}
	third := &fakeExecutor{name: "composition", asset: queue.AssetFinal, path: "/tmp/final.mp4"}
	executors := []pipeline.Executor{
		&fakeExecutor{name: "background", asset: queue.AssetBackground, path: "/tmp/bg.mp4"},
		second,
		third,
	}
	runner := pipeline.NewRunner(store, executors, logging.NewNop())

	ctx := context.Background()
	err := runner.Run(ctx, job)
	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != "speech" || !errors.Is(stageErr, boom) {
		t.Fatalf("unexpected stage error %v", stageErr)
	}
	if third.calls != 0 {
		t.Fatal("stages after the failure must not run")
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", fetched.Status)
	}
	if fetched.ErrorMessage != "stage speech: tts crashed" {
		t.Fatalf("unexpected error message %q", fetched.ErrorMessage)
	}
	// Earlier assets stay recorded for inspection.
	if fetched.BackgroundPath != "/tmp/bg.mp4" {
		t.Fatalf("expected background asset kept, got %q", fetched.BackgroundPath)
	}

	counters, err := store.CountersFor(ctx, fetched.UpdatedAt)
	if err != nil {
		t.Fatalf("CountersFor failed: %v", err)
	}
	if counters.Errors != 1 || counters.Generated != 0 {
		t.Fatalf("unexpected counters %#v", counters)
	}
}
